// Package library keeps a reader's book collections and reading positions
// consistent across guest and authenticated identities.
//
// # Collections
//
// Every identity owns three collections: favorites, reading and read. A book
// belongs to at most one of them. Adding promotes along
// favorites < reading < read and evicts the book from weaker collections;
// adding to a weaker collection than the current one is a successful no-op.
//
// Guests are capacity limited (see Quota) and keep their data in a local,
// device-scoped cache. Authenticated users keep theirs in the relational
// store. Stores routes each identity to the right backend.
//
// # Usage
//
//	svc := library.NewService(library.Stores{Remote: repo, Local: cache}, library.Options{
//	    GuestQuota: library.Quota{Max: 7},
//	})
//	out := svc.ToggleReading(ctx, library.Authenticated(42), "book-1", 0)
//	if !out.OK && out.Reason == library.CodeQuotaExceeded {
//	    // tell the user the library is full
//	}
//
// # Identity switches
//
// A Manager tracks the identity of one client session. Bind connects it to
// a Service and Tracker so that logging in replaces the in-memory
// collections with the account's stored ones (guest collections are not
// merged), and logging out clears them and cancels pending position writes.
// Managers handed out by Clients share the Service: leaving an identity that
// another client still acts as flushes its writes and keeps its view.
package library
