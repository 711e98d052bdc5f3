package session

import (
	"context"
	"errors"
)

// ErrNotFound reports that no session exists under the requested ID.
var ErrNotFound = errors.New("session not found")

// Store persists sessions. Implementations serialize the State as JSON
// and must return copies that callers can mutate freely.
type Store interface {
	// Save writes the session, replacing any previous version.
	Save(ctx context.Context, st *State) error
	// Load returns the session with the given ID, or ErrNotFound.
	Load(ctx context.Context, id string) (*State, error)
	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
	// Delete removes the session. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
}
