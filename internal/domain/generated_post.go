package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EmojiChanges struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	NetChange int `json:"netChange"`
}

type StructuralChanges struct {
	AddedBulletPoints   bool `json:"addedBulletPoints"`
	RemovedBulletPoints bool `json:"removedBulletPoints"`
	ShortenedParagraphs bool `json:"shortenedParagraphs"`
	AddedHook           bool `json:"addedHook"`
}

type VocabularySubstitution struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EditMetadata captures one user edit of a generated post. Immutable
// once written, except for the learning_processed flag on the row.
type EditMetadata struct {
	OriginalText        string                   `json:"originalText"`
	EditedText          string                   `json:"editedText"`
	OriginalLength      int                      `json:"originalLength"`
	EditedLength        int                      `json:"editedLength"`
	SentenceLengthDelta float64                  `json:"sentenceLengthDelta"`
	EmojiChanges        EmojiChanges             `json:"emojiChanges"`
	StructuralChanges   StructuralChanges        `json:"structuralChanges"`
	ToneShift           string                   `json:"toneShift"`
	VocabularyChanges   []VocabularySubstitution `json:"vocabularyChanges"`
	PhrasesAdded        []string                 `json:"phrasesAdded"`
	PhrasesRemoved      []string                 `json:"phrasesRemoved"`
	EditTimestamp       time.Time                `json:"editTimestamp"`
}

// GeneratedPost is a generated-content row. EditMetadata is nullable:
// pruning clears it (and EditTimestamp) while the post itself stays.
type GeneratedPost struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Platform          string         `gorm:"column:platform;not null;default:''" json:"platform"`
	Content           string         `gorm:"column:content;not null" json:"content"`
	EditMetadata      datatypes.JSON `gorm:"type:jsonb;column:edit_metadata" json:"edit_metadata,omitempty"`
	EditTimestamp     *time.Time     `gorm:"column:edit_timestamp;index" json:"edit_timestamp,omitempty"`
	LearningProcessed bool           `gorm:"column:learning_processed;not null;default:false;index" json:"learning_processed"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GeneratedPost) TableName() string { return "generated_post" }
