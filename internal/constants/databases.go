package constants

const (
	DatabaseTypePostgres = "postgres"
	DatabaseTypeMySQL    = "mysql"
)

// Collections in the document store
const (
	CollectionFileMetadata    = "file_metadata"
	CollectionUserPreferences = "user_preferences"
)
