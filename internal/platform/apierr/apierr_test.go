package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid skill", types.ErrInvalidSkillID, http.StatusBadRequest, "invalid_skill_id"},
		{"wrapped observation", fmt.Errorf("observe: %w", types.ErrInvalidObservation), http.StatusBadRequest, "invalid_observation"},
		{"invalid action", types.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
		{"unknown level", types.ErrUnknownLevel, http.StatusBadRequest, "unknown_level"},
		{"unknown module", types.ErrUnknownModule, http.StatusNotFound, "unknown_module"},
		{"persistence", types.Unavailable(errors.New("conn refused")), http.StatusServiceUnavailable, "persistence_unavailable"},
		{"not initialized", types.ErrNotInitialized, http.StatusServiceUnavailable, "not_initialized"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
		{"explicit", fmt.Errorf("x: %w", New(http.StatusConflict, "conflict", nil)), http.StatusConflict, "conflict"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromDomain(tc.err)
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("FromDomain(%v) = %d %q, want %d %q", tc.err, got.Status, got.Code, tc.status, tc.code)
			}
		})
	}
	if FromDomain(nil) != nil {
		t.Fatalf("FromDomain(nil) should be nil")
	}
}
