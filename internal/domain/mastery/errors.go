package mastery

import (
	"errors"
	"fmt"
)

var (
	// Caller errors: surfaced immediately, never retried.
	ErrInvalidSkillID     = errors.New("mastery: invalid skill id")
	ErrInvalidObservation = errors.New("mastery: invalid observation")
	ErrInvalidAction      = errors.New("mastery: invalid action")
	ErrUnknownModule      = errors.New("mastery: unknown module")
	ErrUnknownLevel       = errors.New("mastery: unknown readiness level")

	// ErrPersistenceUnavailable wraps every failure of an injected repository.
	ErrPersistenceUnavailable = errors.New("mastery: persistence unavailable")

	ErrCyclicGraph    = errors.New("mastery: prerequisite graph has a cycle")
	ErrInvalidGraph   = errors.New("mastery: invalid skill graph")
	ErrNotInitialized = errors.New("mastery: engine not initialized")
)

// Unavailable marks err as a persistence failure while keeping it inspectable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistenceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
}

// IsCallerError reports whether err is caused by invalid input rather than infrastructure.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidSkillID) ||
		errors.Is(err, ErrInvalidObservation) ||
		errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrUnknownModule) ||
		errors.Is(err, ErrUnknownLevel)
}
