package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found", NewNotFoundError(KindOrder, "123456-7890"), ErrNotFound, true},
		{"wrapped conflict", fmt.Errorf("create: %w", NewConflictError(KindGood, "G-1")), ErrConflict, true},
		{"validation is not conflict", NewValidationError("bad"), ErrConflict, false},
		{"storage with cause", NewStorageError("save orders", errors.New("disk full")), ErrStorageFailure, true},
		{"foreign error", errors.New("boom"), ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeAndMessageOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewNotFoundError(KindContainer, "ABCU1234567"))
	if got := CodeOf(err); got != CodeNotFound {
		t.Fatalf("CodeOf() = %s, want %s", got, CodeNotFound)
	}
	if got := MessageOf(err); got != "container ABCU1234567 not found" {
		t.Fatalf("MessageOf() = %q", got)
	}
	if got := CodeOf(errors.New("io")); got != CodeStorageFailure {
		t.Fatalf("foreign errors must map to %s, got %s", CodeStorageFailure, got)
	}

	storageErr := NewStorageError("save goods", errors.New("disk full"))
	if !errors.Is(storageErr, storageErr.Unwrap()) {
		t.Fatal("storage error must unwrap to its cause")
	}
	if got := storageErr.Error(); got != "save goods: disk full" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestErrorCodeExpected(t *testing.T) {
	for _, code := range []ErrorCode{CodeValidation, CodeNotFound, CodeConflict} {
		if !code.Expected() {
			t.Errorf("%s must be expected", code)
		}
	}
	for _, code := range []ErrorCode{CodeUnsupportedOperation, CodeStorageFailure} {
		if code.Expected() {
			t.Errorf("%s must not be expected", code)
		}
	}
}

func TestResultVariants(t *testing.T) {
	ok := ResultOf(Good{GoodNumber: "G-1"}, nil)
	if !ok.IsOk() || ok.Value().GoodNumber != "G-1" || ok.Error() != nil {
		t.Fatalf("unexpected ok result: %+v", ok)
	}

	failed := ResultOf(Good{}, NewConflictError(KindGood, "G-1"))
	if failed.IsOk() {
		t.Fatal("expected err variant")
	}
	if failed.Error().Code != CodeConflict {
		t.Fatalf("code = %s", failed.Error().Code)
	}
	if _, err := failed.Unwrap(); !errors.Is(err, ErrConflict) {
		t.Fatalf("Unwrap() error = %v", err)
	}
}

func TestDeleteResults(t *testing.T) {
	res := Deleted(KindGood, "G-1")
	if !res.Success || res.Code != CodeSuccess || res.Message != "good G-1 deleted" {
		t.Fatalf("unexpected delete result: %+v", res)
	}

	failed := DeleteFailed(NewNotFoundError(KindGood, "G-1"))
	if failed.Success || failed.Code != string(CodeNotFound) || failed.Message != "good G-1 not found" {
		t.Fatalf("unexpected failed delete result: %+v", failed)
	}
}
