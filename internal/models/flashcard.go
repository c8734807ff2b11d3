package models

type Flashcard struct {
	SessionID string         `gorm:"type:varchar(64);index;not null" json:"session_id"`
	Front     string         `gorm:"type:text" json:"front"`
	Back      string         `gorm:"type:text" json:"back"`
	Tags      JSON[[]string] `json:"tags"`
	Base
}
