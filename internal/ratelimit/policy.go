// Package ratelimit реализует лимитер попыток с фиксированным окном
// по паре (идентификатор, действие). Атомарность шага обеспечивает
// хранилище: PostgreSQL, Redis или память процесса.
package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Action — закрытый перечень ограничиваемых действий.
type Action string

const (
	ActionLogin      Action = "login"
	ActionRegister   Action = "register"
	ActionAPIDefault Action = "api-default"
)

// ErrUnknownAction возвращается для действия без зарегистрированной политики.
var ErrUnknownAction = errors.New("unknown rate limit action")

// Actions возвращает все известные действия.
func Actions() []Action {
	return []Action{ActionLogin, ActionRegister, ActionAPIDefault}
}

// ParseAction проверяет, что имя действия входит в перечень.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions() {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Policy задаёт окно и лимит для действия.
type Policy struct {
	Max      int           // Максимум разрешённых попыток в окне
	Window   time.Duration // Длительность окна
	FailOpen bool          // Разрешать при недоступном хранилище
}

// DefaultPolicies возвращает встроенные политики.
func DefaultPolicies() map[Action]Policy {
	return map[Action]Policy{
		ActionLogin:      {Max: 5, Window: 15 * time.Minute},
		ActionRegister:   {Max: 3, Window: 60 * time.Minute},
		ActionAPIDefault: {Max: 100, Window: time.Minute, FailOpen: true},
	}
}

// Validate проверяет политику для действия. fail-open допустим только
// для api-default: вход и регистрация при сбое хранилища отклоняются.
func (p Policy) Validate(action Action) error {
	if p.Max < 1 {
		return fmt.Errorf("rate limit %s: max must be at least 1", action)
	}
	if p.Window <= 0 {
		return fmt.Errorf("rate limit %s: window must be positive", action)
	}
	if p.FailOpen && action != ActionAPIDefault {
		return fmt.Errorf("rate limit %s: fail_open is only allowed for %s", action, ActionAPIDefault)
	}
	return nil
}
