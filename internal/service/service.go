// Package service contains the mutation pipelines. Every task, project,
// comment, and user mutation follows the same shape: load current state,
// authorize against policy, compute the field diff, persist the domain
// write together with its audit records in one store transaction, then
// fire notifications and broadcasts. Steps before persist fail fast with
// nothing durable changed; notification and broadcast failures after a
// successful persist never surface to the caller.
package service

import (
	"errors"
	"log"
	"time"

	apperrors "github.com/taskdeck/taskdeck/internal/errors"
	"github.com/taskdeck/taskdeck/internal/platform/id"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// Broadcaster publishes best-effort realtime events.
type Broadcaster interface {
	Publish(topic string, payload any)
}

// deps are the collaborators every pipeline shares.
type deps struct {
	store       storage.Store
	broadcaster Broadcaster
	clock       func() time.Time
	newID       func() (string, error)
}

func newDeps(store storage.Store, broadcaster Broadcaster, clock func() time.Time, newID func() (string, error)) deps {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return deps{
		store:       store,
		broadcaster: broadcaster,
		clock:       clock,
		newID:       newID,
	}
}

func (d deps) publish(topic string, payload any) {
	if d.broadcaster != nil {
		d.broadcaster.Publish(topic, payload)
	}
}

// logSideEffect records a failed post-persist side effect. The domain
// mutation already committed, so the failure is logged and dropped.
func logSideEffect(op string, err error) {
	log.Printf("service: %s: %v", op, err)
}

// notFoundOr maps the store's sentinel onto a coded not-found error and
// passes everything else through.
func notFoundOr(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, message)
	}
	return err
}
