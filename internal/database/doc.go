// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── books/           # Book catalogue
//	├── collections/     # favorites / reading / read membership tables
//	├── progress/        # Reading progress, upserted per (user, book)
//	└── users/           # User lookups
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./bookshelf.db")
//
//	collectionsRepo := collections.NewRepository(db.DB)
//	progressRepo := progress.NewRepository(db.DB)
//
//	ids, err := collectionsRepo.ListBooks(ctx, userID, library.KindReading)
//
// # Interface Implementations
//
//   - collections.Repository: implements library.RemoteStore
//   - progress.Repository: implements library.RemotePositions
//   - books.Repository: implements http.BookStore
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
