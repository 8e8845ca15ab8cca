package domain

import "fmt"

// Result — явный вариант Ok/Err для адаптеров, которые возвращают ошибки внутри ответа.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok оборачивает успешное значение.
func Ok[T any](value T) Result[T] { return Result[T]{value: value} }

// Err оборачивает ошибку ядра.
func Err[T any](code ErrorCode, message string) Result[T] {
	return Result[T]{err: &Error{Code: code, Message: message}}
}

// ResultOf строит Result из пары (value, err), как её возвращают репозиторий и сервис.
func ResultOf[T any](value T, err error) Result[T] {
	if err == nil {
		return Ok(value)
	}
	return Err[T](CodeOf(err), MessageOf(err))
}

func (r Result[T]) IsOk() bool { return r.err == nil }

func (r Result[T]) Value() T { return r.value }

// Error возвращает ошибку варианта Err или nil.
func (r Result[T]) Error() *Error { return r.err }

// Unwrap возвращает пару (value, error).
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// CodeSuccess — код успешного удаления в DeleteResult.
const CodeSuccess = "OK"

// DeleteResult — подтверждение удаления.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Deleted формирует успешный DeleteResult.
func Deleted(kind RecordKind, key string) DeleteResult {
	return DeleteResult{Success: true, Message: fmt.Sprintf("%s %s deleted", kind, key), Code: CodeSuccess}
}

// DeleteFailed переносит ошибку удаления в DeleteResult.
func DeleteFailed(err error) DeleteResult {
	return DeleteResult{Success: false, Message: MessageOf(err), Code: string(CodeOf(err))}
}
