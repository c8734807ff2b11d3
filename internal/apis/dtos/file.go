package dtos

type FileMetadataRequest struct {
	UserID        string                 `json:"user_id"`
	VectorStoreID string                 `json:"vector_store_id" binding:"required"`
	FileID        string                 `json:"file_id" binding:"required"`
	Name          string                 `json:"name"`
	MimeType      string                 `json:"mime_type"`
	Size          int64                  `json:"size"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

type PreferencesRequest struct {
	UserID         string `json:"user_id"`
	AutoAddSources *bool  `json:"auto_add_sources" binding:"required"`
}
