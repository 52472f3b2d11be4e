// Package persistence holds what the record store implementations share:
// timestamp encoding, query deadlines and error classification.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
)

// DefaultTimeFormat is the layout of last_submission values.
const DefaultTimeFormat = "2006-01-02 15:04:05"

// DefaultQueryTimeout bounds a store call when none is configured.
const DefaultQueryTimeout = 5 * time.Second

// Options configures a record store.
type Options struct {
	// TimeFormat is the layout used to store last_submission as text.
	TimeFormat string

	// Location is the zone timestamps are written and read in.
	Location *time.Location

	// QueryTimeout bounds every store call.
	QueryTimeout time.Duration
}

// Normalize fills unset fields with defaults.
func (o Options) Normalize() Options {
	if o.TimeFormat == "" {
		o.TimeFormat = DefaultTimeFormat
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	return o
}

// FormatTime encodes a submission timestamp.
func (o Options) FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(o.Location).Format(o.TimeFormat)
}

// ParseTime decodes a submission timestamp. Rows written with another layout
// (legacy data) decode to the zero time instead of failing the read.
func (o Options) ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(o.TimeFormat, s, o.Location)
	if err != nil {
		return time.Time{}
	}
	return t
}

// WithTimeout derives the deadline for one store call.
func (o Options) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.QueryTimeout)
}

// StoreError classifies an error returned from inside a store call. Domain
// errors (not found, conflicts, validation) pass through; anything else is
// StoreUnavailable.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.StoreUnavailable(op, err)
}

// ConflictError reports a lost insert race on a record key.
func ConflictError(err error) error {
	return shared.WrapError("streak", "Update", shared.ErrConcurrentModification, "record created concurrently", err)
}
