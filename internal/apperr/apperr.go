package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind классифицирует ошибку движка бронирования
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindSlotUnavailable Kind = "SLOT_UNAVAILABLE"
	KindPermission      Kind = "PERMISSION_DENIED"
	KindNotFound        Kind = "NOT_FOUND"
	KindStateTransition Kind = "STATE_TRANSITION"
	KindExternalService Kind = "EXTERNAL_SERVICE"
	KindInternal        Kind = "INTERNAL"
)

// Error ошибка с типом, понятным транспортному слою
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по Kind через errors.Is(err, apperr.ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Шаблоны для errors.Is
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrSlotUnavailable = &Error{Kind: KindSlotUnavailable}
	ErrPermission      = &Error{Kind: KindPermission}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrStateTransition = &Error{Kind: KindStateTransition}
	ErrExternalService = &Error{Kind: KindExternalService}
)

// ErrDuplicateRequest хранилище уже содержит запись с тем же ключом идемпотентности
var ErrDuplicateRequest = errors.New("duplicate request key")

// Validation создаёт ошибку валидации с перечнем проблем
func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func SlotUnavailable(format string, args ...any) *Error {
	return &Error{Kind: KindSlotUnavailable, Message: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func StateTransition(format string, args ...any) *Error {
	return &Error{Kind: KindStateTransition, Message: fmt.Sprintf(format, args...)}
}

// External оборачивает сбой внешнего сервиса (календарь и т.п.)
func External(service string, err error) *Error {
	return &Error{Kind: KindExternalService, Message: service + " failed", Err: err}
}

// KindOf возвращает тип ошибки, для нетипизированных ошибок KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is проверяет тип ошибки по всей цепочке обёрток
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// DetailsOf возвращает детали ошибки, если они есть
func DetailsOf(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
