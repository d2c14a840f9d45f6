// Package state tracks each user's position in the onboarding dialog:
// which answer the bot is waiting for and any context collected so far.
package state

import "context"

// Storage persists per-user dialog state.
type Storage interface {
	// GetState returns the user's dialog state or ErrStateNotFound.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState stores the dialog state, stamping UpdatedAt.
	SetState(ctx context.Context, userID int64, state *UserState) error
	// ClearState removes the dialog state, ending the conversation.
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates lists every active dialog, used by metrics collectors.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
