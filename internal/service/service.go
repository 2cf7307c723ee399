package service

import (
	"context"
	"time"

	"hospital-portal/internal/repository"
)

// TransitionRecorder counts committed workflow transitions.
type TransitionRecorder interface {
	RecordTransition(entity, action string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, string) {}

func recorderOrNop(r TransitionRecorder) TransitionRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// writeAudit appends an audit row through the given (usually transactional) store.
func writeAudit(ctx context.Context, tx repository.Store, actor uint, action, details string) error {
	var actorPtr *uint
	if actor != 0 {
		actorPtr = &actor
	}
	return tx.Audit().CreateAuditLog(ctx, actorPtr, action, details)
}

// dateOnly truncates t to midnight in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
