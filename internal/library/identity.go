package library

import (
	"fmt"
	"strconv"
)

// IdentityKind tells which backing store an identity's data lives in.
type IdentityKind string

const (
	IdentityUnknown       IdentityKind = "unknown"
	IdentityGuest         IdentityKind = "guest"
	IdentityAuthenticated IdentityKind = "authenticated"
)

// Identity is the acting principal for a client session. It is passed into
// every operation of this package; nothing here reads it from ambient state.
type Identity struct {
	Kind    IdentityKind `json:"kind"`
	UserID  uint         `json:"user_id,omitempty"`
	GuestID string       `json:"guest_id,omitempty"`
}

// Unknown is the identity of a client whose session has not been resolved yet.
func Unknown() Identity {
	return Identity{Kind: IdentityUnknown}
}

// Guest returns the anonymous identity scoped to one device.
func Guest(guestID string) Identity {
	return Identity{Kind: IdentityGuest, GuestID: guestID}
}

// Authenticated returns the durable account identity for userID.
func Authenticated(userID uint) Identity {
	return Identity{Kind: IdentityAuthenticated, UserID: userID}
}

// Resolved reports whether the identity can own library data.
func (i Identity) Resolved() bool {
	switch i.Kind {
	case IdentityGuest:
		return i.GuestID != ""
	case IdentityAuthenticated:
		return i.UserID != 0
	default:
		return false
	}
}

// IsGuest reports whether the identity is an anonymous guest.
func (i Identity) IsGuest() bool {
	return i.Kind == IdentityGuest
}

// IsAuthenticated reports whether the identity is a signed-in account.
func (i Identity) IsAuthenticated() bool {
	return i.Kind == IdentityAuthenticated
}

// Key is a stable string usable as a map key or storage key prefix.
func (i Identity) Key() string {
	switch i.Kind {
	case IdentityGuest:
		return "guest:" + i.GuestID
	case IdentityAuthenticated:
		return "user:" + strconv.FormatUint(uint64(i.UserID), 10)
	default:
		return "unknown"
	}
}

func (i Identity) String() string {
	return i.Key()
}

// Equal compares two identities by kind and subject.
func (i Identity) Equal(other Identity) bool {
	return i.Key() == other.Key()
}

func (i Identity) validate() error {
	if !i.Resolved() {
		return NotAuthenticated(fmt.Sprintf("identity %s cannot own library data", i.Key()))
	}
	return nil
}
