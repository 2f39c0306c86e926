// Package sink delivers finished session records to persistence backends.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/store"
)

// Sink persists a finished session record.
type Sink interface {
	Save(ctx context.Context, rec *session.Record) error
}

// Multi fans a record out to several sinks. Every sink is tried; failures are
// joined into a single error.
type Multi []Sink

// Save delivers rec to every sink.
func (m Multi) Save(ctx context.Context, rec *session.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreSink saves records to the local SQLite store.
type StoreSink struct {
	store *store.Store
}

// NewStoreSink creates a StoreSink.
func NewStoreSink(s *store.Store) *StoreSink {
	return &StoreSink{store: s}
}

// Save inserts the record and its ranked signs.
func (s *StoreSink) Save(ctx context.Context, rec *session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	signs := make([]store.SignCount, len(rec.TopSigns))
	for i, sc := range rec.TopSigns {
		signs[i] = store.SignCount{Label: sc.Label, Count: sc.Count}
	}

	err := s.store.Sessions().Create(&store.Session{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Username:     rec.Username,
		TopSigns:     signs,
		SecondsSpent: rec.SecondsSpent,
		Score:        rec.Score,
		Questions:    rec.Questions,
		CreatedAt:    rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", rec.ID, err)
	}
	return nil
}
