package apierr

import (
	"errors"
	"fmt"
	"net/http"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps engine errors onto HTTP statuses. An *Error already in the
// chain wins.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	switch {
	case errors.Is(err, types.ErrUnknownModule):
		return New(http.StatusNotFound, "unknown_module", err)
	case errors.Is(err, types.ErrInvalidSkillID):
		return New(http.StatusBadRequest, "invalid_skill_id", err)
	case errors.Is(err, types.ErrInvalidObservation):
		return New(http.StatusBadRequest, "invalid_observation", err)
	case errors.Is(err, types.ErrInvalidAction):
		return New(http.StatusBadRequest, "invalid_action", err)
	case errors.Is(err, types.ErrUnknownLevel):
		return New(http.StatusBadRequest, "unknown_level", err)
	case errors.Is(err, types.ErrNotInitialized):
		return New(http.StatusServiceUnavailable, "not_initialized", err)
	case errors.Is(err, types.ErrPersistenceUnavailable):
		return New(http.StatusServiceUnavailable, "persistence_unavailable", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
