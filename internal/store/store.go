// Package store persists user availability documents, groups and group
// messages. The interface mirrors the document-store shape the app talks
// to: users/{uid}.availability, groups/{gid}.members, groups/{gid}.messages.
package store

import (
	"context"

	"booked/internal/models"
)

// DocumentStore is the narrow persistence contract used by the sync layer
// and the API. Implementations wrap connectivity failures in
// models.ErrSourceUnavailable and report missing groups with
// models.ErrNotFound. A user with no stored events is not an error; it
// yields an empty slice.
type DocumentStore interface {
	// GetUserEvents returns the user's full stored event set, local and
	// cloud mixed.
	GetUserEvents(ctx context.Context, userID string) ([]models.Event, error)
	// PutUserEvents replaces the user's stored event set wholesale.
	PutUserEvents(ctx context.Context, userID string, events []models.Event) error

	GetGroup(ctx context.Context, groupID string) (models.Group, error)
	PutGroup(ctx context.Context, group models.Group) error
	ListGroups(ctx context.Context) ([]models.Group, error)

	AppendMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, groupID string) ([]models.Message, error)
}
