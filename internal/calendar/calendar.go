// Package calendar defines the contract the sync layer uses to talk to an
// external calendar provider. Implementations live in internal/google and
// internal/caldav.
package calendar

import (
	"context"
	"time"

	"booked/internal/models"
)

// Provider is the narrow read interface over an external calendar source.
//
// Both methods are fallible: implementations wrap transport failures in
// models.ErrSourceUnavailable and auth failures in
// models.ErrPermissionDenied so callers can tell a dead network from a
// revoked grant. An empty calendar list is a valid, non-error result.
type Provider interface {
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
	ListEvents(ctx context.Context, calendarIDs []string, start, end time.Time) ([]models.RawEvent, error)
}
