// Package session holds the application state for the current analysis and applies all
// changes to it on a single event loop, so a superseded backend response can never
// overwrite the results of a newer request.
package session

import (
	"time"

	"github.com/hyperjump/trendlens/internal/models"
)

// Phase is where the current epoch is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Settled reports whether the epoch has a final outcome.
func (p Phase) Settled() bool {
	return p == PhaseReady || p == PhaseFailed
}

// State is an immutable snapshot of the session. Each request increments Epoch;
// Results belong to Epoch and are nil unless Phase is PhaseReady.
type State struct {
	Epoch     uint64            `json:"epoch"`
	Phase     Phase             `json:"phase"`
	Keywords  []string          `json:"keywords"`
	Results   *models.ResultSet `json:"results,omitempty"`
	Err       error             `json:"-"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Error returns the failure message, or "" when the epoch did not fail.
func (s State) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Begin starts a new epoch for keywords, dropping the previous results.
func Begin(s State, keywords []string, at time.Time) State {
	return State{
		Epoch:     s.Epoch + 1,
		Phase:     PhaseLoading,
		Keywords:  append([]string(nil), keywords...),
		UpdatedAt: at,
	}
}

// Complete installs rs if epoch is current. The bool is false for a stale outcome,
// in which case s is returned unchanged.
func Complete(s State, epoch uint64, rs *models.ResultSet, at time.Time) (State, bool) {
	if epoch != s.Epoch || s.Phase != PhaseLoading {
		return s, false
	}
	s.Phase = PhaseReady
	s.Results = rs
	s.Err = nil
	s.UpdatedAt = at
	return s, true
}

// Fail records err for epoch if it is current. Results stay absent.
func Fail(s State, epoch uint64, err error, at time.Time) (State, bool) {
	if epoch != s.Epoch || s.Phase != PhaseLoading {
		return s, false
	}
	s.Phase = PhaseFailed
	s.Results = nil
	s.Err = err
	s.UpdatedAt = at
	return s, true
}
