package library

import (
	"context"
	"math"
	"time"
)

// Position is where an identity left off in a book.
type Position struct {
	BookID             string    `json:"book_id"`
	CurrentLocation    int       `json:"current_location"`
	TotalLocations     int       `json:"total_locations"`
	ProgressPercentage float64   `json:"progress_percentage"`
	LastUpdated        time.Time `json:"last_updated"`
}

// Progress returns current/total as a percentage rounded to two decimals.
func Progress(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(current)/float64(total)*100*100) / 100
}

// RemotePositions stores positions of authenticated users, upserting on
// (user_id, book_id).
type RemotePositions interface {
	GetProgress(ctx context.Context, userID uint, book string) (*Position, error)
	UpsertProgress(ctx context.Context, userID uint, pos Position) error
}

// LocalPositions stores guest positions on the device.
type LocalPositions interface {
	GetGuestPosition(ctx context.Context, guestID, book string) (*Position, error)
	SaveGuestPosition(ctx context.Context, guestID string, pos Position) error
}

// PositionStores routes an identity to the backend owning its positions.
type PositionStores struct {
	Remote RemotePositions
	Local  LocalPositions
}

// Get returns the stored position or nil when none exists.
func (p PositionStores) Get(ctx context.Context, id Identity, book string) (*Position, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}
	var (
		pos *Position
		err error
	)
	switch {
	case id.IsGuest() && p.Local != nil:
		pos, err = p.Local.GetGuestPosition(ctx, id.GuestID, book)
	case id.IsAuthenticated() && p.Remote != nil:
		pos, err = p.Remote.GetProgress(ctx, id.UserID, book)
	default:
		return nil, StoreUnavailable("position store not configured", nil)
	}
	if err != nil {
		return nil, StoreUnavailable("get position", err)
	}
	return pos, nil
}

// Save writes pos for id.
func (p PositionStores) Save(ctx context.Context, id Identity, pos Position) error {
	if err := id.validate(); err != nil {
		return err
	}
	var err error
	switch {
	case id.IsGuest() && p.Local != nil:
		err = p.Local.SaveGuestPosition(ctx, id.GuestID, pos)
	case id.IsAuthenticated() && p.Remote != nil:
		err = p.Remote.UpsertProgress(ctx, id.UserID, pos)
	default:
		return StoreUnavailable("position store not configured", nil)
	}
	if err != nil {
		return StoreUnavailable("save position", err)
	}
	return nil
}
