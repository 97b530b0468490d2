package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	redisclients "github.com/yungbote/postforge-backend/internal/clients/redis"
	"github.com/yungbote/postforge-backend/internal/data/repos/content"
	"github.com/yungbote/postforge-backend/internal/data/repos/profile"
	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/apperr"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

const (
	// Score component caps. They sum to 100; the total is clamped
	// anyway so a future component can never push past the bound.
	SamplePoints       = 20
	IterationPoints    = 40
	CompletenessPoints = 20
	ConsistencyPoints  = 20

	// Both ramps saturate at 10: ten learning iterations max out the
	// iteration component, ten processed edits max out consistency.
	IterationSaturation   = 10
	ConsistencySaturation = 10

	AnalyticsCacheTTL = 5 * time.Minute
)

type Milestone struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type AnalyticsSummary struct {
	UserID             uuid.UUID            `json:"userId"`
	EvolutionScore     int                  `json:"evolutionScore"`
	TotalEdits         int64                `json:"totalEdits"`
	LearningIterations int                  `json:"learningIterations"`
	Tone               domain.ToneMetrics   `json:"tone"`
	WritingTraits      domain.WritingTraits `json:"writingTraits"`
	CommonPhrases      []string             `json:"commonPhrases"`
	BannedPhrases      []string             `json:"bannedPhrases"`
	ProfileSource      domain.ProfileSource `json:"profileSource"`
	HasInitialSamples  bool                 `json:"hasInitialSamples"`
	ComputedAt         time.Time            `json:"computedAt"`
}

type BeforeAfterExample struct {
	Before       string   `json:"before"`
	After        string   `json:"after"`
	Platform     string   `json:"platform"`
	Improvements []string `json:"improvements"`
}

// EvolutionService summarizes how far a profile has moved from its
// baseline: a bounded [0,100] score, a milestone timeline, and
// analytics assembled from the committed profile plus edit history.
type EvolutionService interface {
	GetEvolutionScore(ctx context.Context, userID uuid.UUID) (int, error)
	GetEvolutionTimeline(ctx context.Context, userID uuid.UUID) ([]Milestone, error)
	GetAnalytics(ctx context.Context, userID uuid.UUID) (*AnalyticsSummary, error)
	GetBeforeAfterExamples(ctx context.Context, userID uuid.UUID, limit int) ([]BeforeAfterExample, error)
}

type evolutionService struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles profile.StyleProfileRepo
	posts    content.GeneratedPostRepo
	cache    redisclients.Cache
}

func NewEvolutionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles profile.StyleProfileRepo,
	posts content.GeneratedPostRepo,
	cache redisclients.Cache,
) EvolutionService {
	return &evolutionService{
		db:       db,
		log:      baseLog.With("service", "EvolutionService"),
		profiles: profiles,
		posts:    posts,
		cache:    cache,
	}
}

// ScoreProfile computes the evolution score from a decoded profile and
// the processed-edit count. Pure so tests and callers that already
// hold the doc can score without store round-trips.
func ScoreProfile(doc *domain.StyleProfile, processedEdits int64) int {
	if doc == nil {
		return 0
	}

	score := 0.0
	if len(doc.SamplePosts) > 0 {
		score += SamplePoints
	}
	score += math.Min(float64(doc.LearningIterations)/IterationSaturation, 1) * IterationPoints
	if len(doc.CommonPhrases) > 0 {
		score += CompletenessPoints / 2
	}
	if len(doc.BannedPhrases) > 0 {
		score += CompletenessPoints / 2
	}
	score += math.Min(float64(processedEdits)/ConsistencySaturation, 1) * ConsistencyPoints

	total := int(math.Round(score))
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

func (s *evolutionService) GetEvolutionScore(ctx context.Context, userID uuid.UUID) (int, error) {
	rec, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return 0, apperr.New(apperr.KindInternal, err)
	}
	if rec == nil {
		return 0, nil
	}
	doc, err := rec.DecodeDoc()
	if err != nil {
		return 0, apperr.New(apperr.KindInternal, err)
	}
	processed, err := s.posts.GetProcessedEditCount(ctx, nil, userID)
	if err != nil {
		return 0, apperr.New(apperr.KindInternal, err)
	}
	return ScoreProfile(doc, processed), nil
}

var iterationMilestones = []struct {
	threshold int
	typ       string
}{
	{5, "iterations_5"},
	{10, "iterations_10"},
	{25, "iterations_25"},
	{50, "iterations_50"},
}

func (s *evolutionService) GetEvolutionTimeline(ctx context.Context, userID uuid.UUID) ([]Milestone, error) {
	timeline := []Milestone{}

	rec, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if rec == nil {
		return timeline, nil
	}
	doc, err := rec.DecodeDoc()
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}

	timeline = append(timeline, Milestone{
		Type:        "profile_created",
		Description: "Voice profile created",
		Timestamp:   rec.CreatedAt,
	})

	processed, err := s.posts.GetProcessedEditCount(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if processed > 0 {
		firstEdit, err := s.posts.GetFirstEditTime(ctx, nil, userID)
		if err != nil {
			return nil, apperr.New(apperr.KindInternal, err)
		}
		ts := rec.LastUpdated
		if firstEdit != nil {
			ts = *firstEdit
		}
		timeline = append(timeline, Milestone{
			Type:        "first_edit",
			Description: "First edit learned from",
			Timestamp:   ts,
		})
	}

	for _, m := range iterationMilestones {
		if doc.LearningIterations >= m.threshold {
			timeline = append(timeline, Milestone{
				Type:        m.typ,
				Description: fmt.Sprintf("%d learning iterations completed", m.threshold),
				Timestamp:   rec.LastUpdated,
			})
		}
	}
	return timeline, nil
}

func (s *evolutionService) GetAnalytics(ctx context.Context, userID uuid.UUID) (*AnalyticsSummary, error) {
	ctx, span := tracer.Start(ctx, "analytics.get",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	key := AnalyticsCacheKey(userID)
	if s.cache != nil {
		var cached AnalyticsSummary
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("analytics cache read failed", "user_id", userID.String(), "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	rec, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if rec == nil {
		return nil, apperr.Newf(apperr.KindNoProfile, "user %s has no style profile", userID)
	}
	doc, err := rec.DecodeDoc()
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}

	totalEdits, err := s.posts.GetEditCount(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	processed, err := s.posts.GetProcessedEditCount(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}

	summary := &AnalyticsSummary{
		UserID:             userID,
		EvolutionScore:     ScoreProfile(doc, processed),
		TotalEdits:         totalEdits,
		LearningIterations: doc.LearningIterations,
		Tone:               doc.Tone,
		WritingTraits:      doc.WritingTraits,
		CommonPhrases:      doc.CommonPhrases,
		BannedPhrases:      doc.BannedPhrases,
		ProfileSource:      doc.ProfileSource,
		HasInitialSamples:  len(doc.SamplePosts) > 0,
		ComputedAt:         time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, AnalyticsCacheTTL); err != nil {
			s.log.Warn("analytics cache write failed", "user_id", userID.String(), "error", err)
		}
	}
	return summary, nil
}

func (s *evolutionService) GetBeforeAfterExamples(ctx context.Context, userID uuid.UUID, limit int) ([]BeforeAfterExample, error) {
	if limit <= 0 {
		limit = 5
	}
	edits, err := s.posts.GetRecentEdits(ctx, nil, userID, limit)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}

	examples := []BeforeAfterExample{}
	for _, post := range edits {
		meta, err := post.DecodeEditMetadata()
		if err != nil {
			s.log.Warn("skipping unreadable edit metadata", "post_id", post.ID.String(), "error", err)
			continue
		}
		if meta == nil {
			continue
		}
		examples = append(examples, BeforeAfterExample{
			Before:       meta.OriginalText,
			After:        meta.EditedText,
			Platform:     post.Platform,
			Improvements: describeImprovements(meta),
		})
	}
	return examples, nil
}

// describeImprovements renders one human-readable line per metadata
// dimension that actually changed in the edit.
func describeImprovements(meta *domain.EditMetadata) []string {
	out := []string{}

	switch {
	case meta.SentenceLengthDelta > 0:
		out = append(out, "Made sentences longer")
	case meta.SentenceLengthDelta < 0:
		out = append(out, "Made sentences shorter")
	}
	if meta.EmojiChanges.NetChange > 0 {
		out = append(out, fmt.Sprintf("Added %d emojis", meta.EmojiChanges.NetChange))
	} else if meta.EmojiChanges.NetChange < 0 {
		out = append(out, fmt.Sprintf("Removed %d emojis", -meta.EmojiChanges.NetChange))
	}
	if meta.StructuralChanges.AddedBulletPoints {
		out = append(out, "Added bullet points")
	}
	if meta.StructuralChanges.RemovedBulletPoints {
		out = append(out, "Removed bullet points")
	}
	if meta.StructuralChanges.ShortenedParagraphs {
		out = append(out, "Shortened paragraphs")
	}
	if meta.StructuralChanges.AddedHook {
		out = append(out, "Added a hook")
	}
	if meta.ToneShift != "" {
		out = append(out, "Tone shift: "+meta.ToneShift)
	}
	if n := len(meta.PhrasesAdded); n > 0 {
		out = append(out, fmt.Sprintf("Added %d phrases", n))
	}
	if n := len(meta.PhrasesRemoved); n > 0 {
		out = append(out, fmt.Sprintf("Removed %d phrases", n))
	}
	return out
}
