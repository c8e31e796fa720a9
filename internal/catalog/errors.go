package catalog

import (
	"errors"
	"fmt"
)

// Ошибки разбора step file.
var (
	// ErrMalformedStepFile — строка содержит не 0, 1 или 2 токена, либо число не разбирается.
	ErrMalformedStepFile = errors.New("malformed step file")

	// ErrDuplicateStepID — один и тот же ID шага встречается дважды.
	ErrDuplicateStepID = errors.New("duplicate step id")
)

// ParseError — ошибка разбора с контекстом.
type ParseError struct {
	Path string // путь к step file (может быть пустым при разборе из reader)
	Line int    // номер строки, начиная с 1
	Msg  string // описание
	Err  error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "step file"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", where, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", where, e.Msg)
}

// Unwrap возвращает базовую ошибку.
func (e *ParseError) Unwrap() error {
	return e.Err
}
