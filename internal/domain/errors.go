package domain

import (
	"errors"
	"fmt"
)

// ErrorCode перечисляет категории ошибок ядра.
type ErrorCode string

const (
	// CodeValidation — некорректный идентификатор или отсутствующее обязательное поле.
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	// CodeNotFound — запись с указанным ключом отсутствует.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeConflict — запись с таким ключом уже существует.
	CodeConflict ErrorCode = "CONFLICT"
	// CodeUnsupportedOperation — неизвестная операция фильтра, запрос прерывается целиком.
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// CodeStorageFailure — ошибка чтения/записи снапшота коллекции.
	CodeStorageFailure ErrorCode = "STORAGE_FAILURE"
)

// Expected сообщает, является ли код ожидаемым бизнес-результатом (а не сбоем).
func (c ErrorCode) Expected() bool {
	switch c {
	case CodeValidation, CodeNotFound, CodeConflict:
		return true
	default:
		return false
	}
}

// Error — типизированная ошибка ядра с кодом и сообщением.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is сравнивает ошибки по коду, поэтому errors.Is(err, ErrNotFound) срабатывает
// для любой ошибки NOT_FOUND независимо от сообщения.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

var (
	// ErrValidation совпадает с любой ошибкой валидации.
	ErrValidation = &Error{Code: CodeValidation, Message: "validation failed"}
	// ErrNotFound совпадает с любой ошибкой отсутствия записи.
	ErrNotFound = &Error{Code: CodeNotFound, Message: "record not found"}
	// ErrConflict совпадает с любой ошибкой дублирования ключа.
	ErrConflict = &Error{Code: CodeConflict, Message: "record already exists"}
	// ErrUnsupportedOperation совпадает с любой ошибкой неизвестной операции фильтра.
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation, Message: "unsupported filter operation"}
	// ErrStorageFailure совпадает с любой ошибкой хранилища.
	ErrStorageFailure = &Error{Code: CodeStorageFailure, Message: "storage failure"}
)

// NewValidationError создаёт ошибку валидации с форматированным сообщением.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError создаёт ошибку отсутствия записи вида "<kind> <key> not found".
func NewNotFoundError(kind RecordKind, key string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", kind, key)}
}

// NewConflictError создаёт ошибку дублирования ключа.
func NewConflictError(kind RecordKind, key string) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf("%s %s already exists", kind, key)}
}

// NewUnsupportedOperationError создаёт ошибку неизвестной операции фильтра.
func NewUnsupportedOperationError(op string) *Error {
	return &Error{Code: CodeUnsupportedOperation, Message: fmt.Sprintf("unsupported filter operation: %s", op)}
}

// NewStorageError оборачивает ошибку снапшот-хранилища.
func NewStorageError(action string, cause error) *Error {
	return &Error{Code: CodeStorageFailure, Message: action, cause: cause}
}

// CodeOf возвращает код ошибки ядра; для посторонних ошибок — STORAGE_FAILURE.
func CodeOf(err error) ErrorCode {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeStorageFailure
}

// MessageOf возвращает сообщение ошибки без обёрток причины.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
