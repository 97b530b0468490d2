package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/data/repos/content"
	"github.com/yungbote/postforge-backend/internal/data/repos/profile"
	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

// SentenceLengthBlendWeight damps how far one learning pass moves the
// profile toward the observed sentence-length drift.
const SentenceLengthBlendWeight = 0.15

// ApplyPatterns folds detected patterns into the profile as bounded,
// damped adjustments. Pinned sub-objects are restored verbatim from
// the override regardless of what the patterns suggest, and every
// adjusted value is clamped back into its declared range.
func ApplyPatterns(p *domain.StyleProfile, patterns *DetectedPatterns, ov *domain.ManualOverrides) {
	if p == nil {
		return
	}
	if ov == nil {
		ov = &domain.ManualOverrides{}
	}
	if patterns == nil {
		patterns = &DetectedPatterns{}
	}

	if !ov.WritingTraits.Pinned {
		if patterns.SentenceLengthDelta != nil {
			adjusted := float64(p.WritingTraits.AvgSentenceLength) + *patterns.SentenceLengthDelta*SentenceLengthBlendWeight
			p.WritingTraits.AvgSentenceLength = int(math.Round(adjusted))
			if p.WritingTraits.AvgSentenceLength < 1 {
				p.WritingTraits.AvgSentenceLength = 1
			}
		}
		if patterns.Emoji != nil && patterns.Emoji.ShouldUse {
			p.WritingTraits.UsesEmojis = true
			p.WritingTraits.EmojiFrequency = clampInt(patterns.Emoji.Frequency, domain.EmojiFrequencyMin, domain.EmojiFrequencyMax)
		}
	} else {
		p.WritingTraits = ov.WritingTraits.Value
	}

	if !ov.StructurePreferences.Pinned {
		if patterns.CallToAction {
			p.StructurePreferences.EndingStyle = domain.EndingCTA
		}
	} else {
		p.StructurePreferences = ov.StructurePreferences.Value
	}

	if ov.Tone.Pinned {
		p.Tone = ov.Tone.Value
	}
	p.Tone = clampTone(p.Tone)

	p.BannedPhrases = appendUnique(p.BannedPhrases, patterns.BannedPhraseCandidates)
	p.CommonPhrases = appendUnique(p.CommonPhrases, patterns.CommonPhraseCandidates)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampTone(t domain.ToneMetrics) domain.ToneMetrics {
	t.Formality = clampInt(t.Formality, domain.ToneMin, domain.ToneMax)
	t.Enthusiasm = clampInt(t.Enthusiasm, domain.ToneMin, domain.ToneMax)
	t.Directness = clampInt(t.Directness, domain.ToneMin, domain.ToneMax)
	t.Humor = clampInt(t.Humor, domain.ToneMin, domain.ToneMax)
	t.Emotionality = clampInt(t.Emotionality, domain.ToneMin, domain.ToneMax)
	return t
}

func appendUnique(existing []string, add []string) []string {
	out := append([]string{}, existing...)
	seen := make(map[string]struct{}, len(out))
	for _, s := range out {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type LearningRunResult struct {
	Ran            bool
	EditsProcessed int64
	Pruned         int64
	Patterns       *DetectedPatterns
	Profile        *domain.StyleProfile
}

// LearningService runs the feedback loop: recent unprocessed edits →
// detected patterns → weighted profile update → committed through the
// optimistic write path → edits marked processed and metadata pruned.
type LearningService interface {
	// NotifyEdit is the entry point for "a user just edited generated
	// content": run a learning update now if the user's throttle window
	// allows it, otherwise accumulate the edit for the next flush.
	NotifyEdit(ctx context.Context, userID uuid.UUID) (*LearningRunResult, error)

	RunLearningUpdate(ctx context.Context, userID uuid.UUID) (*LearningRunResult, error)

	// FlushDue runs deferred learning updates for users whose batching
	// window has expired. Invoked by the worker loop.
	FlushDue(ctx context.Context) error
}

type learningService struct {
	db        *gorm.DB
	log       *logger.Logger
	posts     content.GeneratedPostRepo
	overrides profile.ManualOverrideRepo
	detector  PatternDetectionService
	updater   ProfileUpdateService
	throttle  *LearningThrottle
	editCap   int
}

func NewLearningService(
	db *gorm.DB,
	baseLog *logger.Logger,
	posts content.GeneratedPostRepo,
	overrides profile.ManualOverrideRepo,
	detector PatternDetectionService,
	updater ProfileUpdateService,
	throttle *LearningThrottle,
	editCap int,
) LearningService {
	if editCap <= 0 {
		editCap = content.DefaultEditCap
	}
	return &learningService{
		db:        db,
		log:       baseLog.With("service", "LearningService"),
		posts:     posts,
		overrides: overrides,
		detector:  detector,
		updater:   updater,
		throttle:  throttle,
		editCap:   editCap,
	}
}

func (s *learningService) NotifyEdit(ctx context.Context, userID uuid.UUID) (*LearningRunResult, error) {
	if s.throttle != nil && !s.throttle.Allow(userID) {
		pending := s.throttle.Accumulate(userID)
		s.log.Debug("learning update deferred", "user_id", userID.String(), "pending_edits", pending)
		return &LearningRunResult{Ran: false}, nil
	}
	return s.RunLearningUpdate(ctx, userID)
}

func (s *learningService) RunLearningUpdate(ctx context.Context, userID uuid.UUID) (*LearningRunResult, error) {
	ctx, span := tracer.Start(ctx, "learning.run",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	unprocessed, err := s.posts.GetUnprocessedEdits(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if len(unprocessed) == 0 {
		return &LearningRunResult{Ran: false}, nil
	}

	patterns := s.detector.DetectFromEdits(unprocessed)
	ov, err := s.overrides.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	// The whole read-adjust-write runs under the advisory lock so
	// concurrent learning passes for a hot user serialize cleanly.
	res, err := s.updater.ApplyProfile(ctx, userID, func(p *domain.StyleProfile) error {
		ApplyPatterns(p, patterns, ov)
		p.LearningIterations++
		p.ProfileSource = domain.SourceFeedback
		return nil
	}, true)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(unprocessed))
	for _, post := range unprocessed {
		ids = append(ids, post.ID)
	}
	processed, err := s.posts.MarkEditsAsProcessed(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	pruned, err := s.posts.PruneOldEditMetadata(ctx, nil, userID, s.editCap)
	if err != nil {
		return nil, err
	}
	if pruned > 0 {
		s.log.Debug("pruned old edit metadata", "user_id", userID.String(), "pruned", pruned)
	}

	return &LearningRunResult{
		Ran:            true,
		EditsProcessed: processed,
		Pruned:         pruned,
		Patterns:       patterns,
		Profile:        res.Profile,
	}, nil
}

func (s *learningService) FlushDue(ctx context.Context) error {
	if s.throttle == nil {
		return nil
	}
	for _, userID := range s.throttle.TakeDue() {
		if _, err := s.RunLearningUpdate(ctx, userID); err != nil {
			s.log.Warn("deferred learning update failed", "user_id", userID.String(), "error", err)
		}
	}
	return nil
}
