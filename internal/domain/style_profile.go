package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VoiceType string

const (
	VoiceEducational  VoiceType = "educational"
	VoiceStorytelling VoiceType = "storytelling"
	VoiceOpinionated  VoiceType = "opinionated"
	VoiceAnalytical   VoiceType = "analytical"
	VoiceCasual       VoiceType = "casual"
	VoiceProfessional VoiceType = "professional"
)

func (v VoiceType) Valid() bool {
	switch v {
	case VoiceEducational, VoiceStorytelling, VoiceOpinionated, VoiceAnalytical, VoiceCasual, VoiceProfessional:
		return true
	}
	return false
}

type VocabularyLevel string

const (
	VocabularySimple   VocabularyLevel = "simple"
	VocabularyMedium   VocabularyLevel = "medium"
	VocabularyAdvanced VocabularyLevel = "advanced"
)

func (v VocabularyLevel) Valid() bool {
	switch v {
	case VocabularySimple, VocabularyMedium, VocabularyAdvanced:
		return true
	}
	return false
}

type ProfileSource string

const (
	SourceManual    ProfileSource = "manual"
	SourceFile      ProfileSource = "file"
	SourceFeedback  ProfileSource = "feedback"
	SourceArchetype ProfileSource = "archetype"
)

func (s ProfileSource) Valid() bool {
	switch s {
	case SourceManual, SourceFile, SourceFeedback, SourceArchetype:
		return true
	}
	return false
}

type IntroStyle string

const (
	IntroQuestion      IntroStyle = "question"
	IntroStory         IntroStyle = "story"
	IntroStatistic     IntroStyle = "statistic"
	IntroBoldStatement IntroStyle = "bold_statement"
)

func (s IntroStyle) Valid() bool {
	switch s {
	case IntroQuestion, IntroStory, IntroStatistic, IntroBoldStatement:
		return true
	}
	return false
}

type BodyStyle string

const (
	BodyBulletPoints    BodyStyle = "bullet_points"
	BodyNarrative       BodyStyle = "narrative"
	BodyNumberedList    BodyStyle = "numbered_list"
	BodyShortParagraphs BodyStyle = "short_paragraphs"
)

func (s BodyStyle) Valid() bool {
	switch s {
	case BodyBulletPoints, BodyNarrative, BodyNumberedList, BodyShortParagraphs:
		return true
	}
	return false
}

type EndingStyle string

const (
	EndingQuestion EndingStyle = "question"
	EndingCTA      EndingStyle = "cta"
	EndingSummary  EndingStyle = "summary"
	EndingThought  EndingStyle = "thought"
)

func (s EndingStyle) Valid() bool {
	switch s {
	case EndingQuestion, EndingCTA, EndingSummary, EndingThought:
		return true
	}
	return false
}

// ToneMetrics are the five 1-10 dials of a voice profile. Every write
// path must keep them in range, not just profile creation.
type ToneMetrics struct {
	Formality    int `json:"formality"`
	Enthusiasm   int `json:"enthusiasm"`
	Directness   int `json:"directness"`
	Humor        int `json:"humor"`
	Emotionality int `json:"emotionality"`
}

func (t ToneMetrics) Validate() error {
	for name, v := range map[string]int{
		"formality":    t.Formality,
		"enthusiasm":   t.Enthusiasm,
		"directness":   t.Directness,
		"humor":        t.Humor,
		"emotionality": t.Emotionality,
	} {
		if v < ToneMin || v > ToneMax {
			return fmt.Errorf("tone.%s must be in [%d,%d], got %d", name, ToneMin, ToneMax, v)
		}
	}
	return nil
}

type WritingTraits struct {
	AvgSentenceLength   int  `json:"avgSentenceLength"`
	UsesQuestionsOften  bool `json:"usesQuestionsOften"`
	UsesEmojis          bool `json:"usesEmojis"`
	UsesBulletPoints    bool `json:"usesBulletPoints"`
	UsesShortParagraphs bool `json:"usesShortParagraphs"`
	UsesHooks           bool `json:"usesHooks"`
	EmojiFrequency      int  `json:"emojiFrequency"`
}

func (w WritingTraits) Validate() error {
	if w.AvgSentenceLength <= 0 {
		return fmt.Errorf("writingTraits.avgSentenceLength must be positive, got %d", w.AvgSentenceLength)
	}
	if w.EmojiFrequency < EmojiFrequencyMin || w.EmojiFrequency > EmojiFrequencyMax {
		return fmt.Errorf("writingTraits.emojiFrequency must be in [%d,%d], got %d", EmojiFrequencyMin, EmojiFrequencyMax, w.EmojiFrequency)
	}
	return nil
}

type StructurePreferences struct {
	IntroStyle  IntroStyle  `json:"introStyle"`
	BodyStyle   BodyStyle   `json:"bodyStyle"`
	EndingStyle EndingStyle `json:"endingStyle"`
}

func (s StructurePreferences) Validate() error {
	if !s.IntroStyle.Valid() {
		return fmt.Errorf("structurePreferences.introStyle invalid: %q", s.IntroStyle)
	}
	if !s.BodyStyle.Valid() {
		return fmt.Errorf("structurePreferences.bodyStyle invalid: %q", s.BodyStyle)
	}
	if !s.EndingStyle.Valid() {
		return fmt.Errorf("structurePreferences.endingStyle invalid: %q", s.EndingStyle)
	}
	return nil
}

const (
	ToneMin           = 1
	ToneMax           = 10
	EmojiFrequencyMin = 0
	EmojiFrequencyMax = 5
)

// StyleProfile is the voice document persisted as a single jsonb
// value; the surrounding row carries the optimistic version counter.
type StyleProfile struct {
	VoiceType            VoiceType            `json:"voiceType"`
	Tone                 ToneMetrics          `json:"tone"`
	WritingTraits        WritingTraits        `json:"writingTraits"`
	StructurePreferences StructurePreferences `json:"structurePreferences"`
	VocabularyLevel      VocabularyLevel      `json:"vocabularyLevel"`
	CommonPhrases        []string             `json:"commonPhrases"`
	BannedPhrases        []string             `json:"bannedPhrases"`
	SamplePosts          []string             `json:"samplePosts"`
	LearningIterations   int                  `json:"learningIterations"`
	ProfileSource        ProfileSource        `json:"profileSource"`
	LastUpdated          time.Time            `json:"lastUpdated"`
}

// Validate enforces the full range/enum contract. Phrase and sample
// slices may be empty but never nil once normalized.
func (p *StyleProfile) Validate() error {
	if !p.VoiceType.Valid() {
		return fmt.Errorf("voiceType invalid: %q", p.VoiceType)
	}
	if err := p.Tone.Validate(); err != nil {
		return err
	}
	if err := p.WritingTraits.Validate(); err != nil {
		return err
	}
	if err := p.StructurePreferences.Validate(); err != nil {
		return err
	}
	if !p.VocabularyLevel.Valid() {
		return fmt.Errorf("vocabularyLevel invalid: %q", p.VocabularyLevel)
	}
	if !p.ProfileSource.Valid() {
		return fmt.Errorf("profileSource invalid: %q", p.ProfileSource)
	}
	if p.LearningIterations < 0 {
		return fmt.Errorf("learningIterations must be non-negative, got %d", p.LearningIterations)
	}
	return nil
}

// Normalize replaces nil slices with empty ones so the marshaled doc
// never contains nulls.
func (p *StyleProfile) Normalize() {
	if p.CommonPhrases == nil {
		p.CommonPhrases = []string{}
	}
	if p.BannedPhrases == nil {
		p.BannedPhrases = []string{}
	}
	if p.SamplePosts == nil {
		p.SamplePosts = []string{}
	}
}

func (p *StyleProfile) Clone() *StyleProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CommonPhrases = append([]string{}, p.CommonPhrases...)
	cp.BannedPhrases = append([]string{}, p.BannedPhrases...)
	cp.SamplePosts = append([]string{}, p.SamplePosts...)
	return &cp
}

// StyleProfileRecord is the storage row. Version is bumped by every
// successful conditional write and is never written unconditionally.
type StyleProfileRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Doc         datatypes.JSON `gorm:"type:jsonb;column:doc;not null" json:"doc"`
	Version     int64          `gorm:"column:version;not null;default:1" json:"version"`
	LastUpdated time.Time      `gorm:"column:last_updated;not null;default:now()" json:"last_updated"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StyleProfileRecord) TableName() string { return "user_style_profile" }
