package apperr

import "fmt"

// Kind - класс ошибки бизнес-логики. Каждый kind детерминированно
// отображается в HTTP статус на уровне хендлеров.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Forbidden
	Conflict
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap сохраняет исходную ошибку хранилища, наружу уходит только message
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validationf(format string, args ...interface{}) *Error {
	return Newf(Validation, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return Newf(NotFound, format, args...)
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return Newf(Forbidden, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return Newf(Conflict, format, args...)
}

func Internalf(format string, args ...interface{}) *Error {
	return Newf(Internal, format, args...)
}
