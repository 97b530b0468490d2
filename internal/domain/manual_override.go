package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pin is a tagged "pinned vs free" variant for a profile sub-object.
// A pinned sub-object is frozen at Value and the learning pipeline
// must not touch it.
type Pin[T any] struct {
	Pinned bool `json:"pinned"`
	Value  T    `json:"value"`
}

func PinOf[T any](v T) Pin[T] {
	return Pin[T]{Pinned: true, Value: v}
}

// ManualOverrides is the per-user override document. Zero value means
// nothing is pinned.
type ManualOverrides struct {
	Tone                 Pin[ToneMetrics]          `json:"tone"`
	WritingTraits        Pin[WritingTraits]        `json:"writingTraits"`
	StructurePreferences Pin[StructurePreferences] `json:"structurePreferences"`
}

type ManualOverrideRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Doc       datatypes.JSON `gorm:"type:jsonb;column:doc;not null" json:"doc"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ManualOverrideRecord) TableName() string { return "user_manual_override" }
