package transport

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNameOccupied означает, что имя пользователя уже занято.
	ErrNameOccupied = errors.New("имя пользователя занято")
	// ErrAdminRequired означает, что у сессии нет прав администратора для операции.
	ErrAdminRequired = errors.New("требуются права администратора")
)

// RateLimitError означает, что провайдер требует подождать перед повтором.
type RateLimitError struct {
	Wait time.Duration
	Err  error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ограничение частоты запросов, ожидание %s: %v", e.Wait, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// Fault описывает сбой соединения или протокола. На уровне движка не повторяется.
type Fault struct {
	Op  string
	Err error
}

func (e *Fault) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *Fault) Unwrap() error { return e.Err }

// AsRateLimit извлекает RateLimitError из цепочки ошибок.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsTransient сообщает, стоит ли повторить операцию позже.
func IsTransient(err error) bool {
	if errors.Is(err, ErrNameOccupied) {
		return true
	}
	_, ok := AsRateLimit(err)
	return ok
}

// IsFault сообщает, является ли ошибка сбоем транспорта.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
