// errors.go — ошибки сервисного слоя.
package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound — ресурс или запись не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — у сессии нет нужного права; backend не вызывался.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStepUnavailable — шаг процесса недоступен (предыдущие не завершены).
	ErrStepUnavailable = errors.New("шаг недоступен")
)

// ValidationError — ошибки отдельных полей формы.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "ошибка валидации: " + strings.Join(names, ", ")
}

// Unwrap позволяет проверять errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
