package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultGuestCachePath is the default path for the bbolt file holding guest libraries
	DefaultGuestCachePath = "./guest-cache.db"

	// DefaultTasksDatabasePath is the default path for the task queue database
	DefaultTasksDatabasePath = "./tasks.db"
)
