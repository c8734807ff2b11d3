package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileMetadata describes a file uploaded to the agent backend's vector store
type FileMetadata struct {
	ID            primitive.ObjectID     `bson:"_id,omitempty" json:"-"`
	UserID        string                 `bson:"user_id" json:"user_id"`
	VectorStoreID string                 `bson:"vector_store_id" json:"vector_store_id"`
	FileID        string                 `bson:"file_id" json:"file_id"`
	Name          string                 `bson:"name" json:"name"`
	MimeType      string                 `bson:"mime_type" json:"mime_type"`
	Size          int64                  `bson:"size" json:"size"`
	UploadedAt    time.Time              `bson:"uploaded_at" json:"uploaded_at"`
	Extra         map[string]interface{} `bson:"extra,omitempty" json:"extra,omitempty"`
}

type UserPreferences struct {
	UserID         string    `bson:"user_id" json:"user_id"`
	AutoAddSources bool      `bson:"auto_add_sources" json:"auto_add_sources"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

func DefaultUserPreferences(userID string) *UserPreferences {
	return &UserPreferences{
		UserID:         userID,
		AutoAddSources: true,
	}
}
