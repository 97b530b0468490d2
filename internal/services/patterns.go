package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/data/repos/content"
	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

const (
	// Minimum distinct edits that must agree before a signal is
	// reported; anything below is treated as noise.
	MinConsistentEdits   = 3
	MinBannedPhraseEdits = 2
	DefaultPatternWindow = content.DefaultAggregateLimit
)

type EmojiPattern struct {
	ShouldUse bool `json:"shouldUse"`
	Frequency int  `json:"frequency"`
}

// DetectedPatterns are the signals strong enough to justify a profile
// mutation. Nil / false / empty fields mean "no pattern".
type DetectedPatterns struct {
	SentenceLengthDelta    *float64      `json:"sentenceLengthDelta,omitempty"`
	Emoji                  *EmojiPattern `json:"emoji,omitempty"`
	CallToAction           bool          `json:"callToAction"`
	BannedPhraseCandidates []string      `json:"bannedPhraseCandidates"`
	CommonPhraseCandidates []string      `json:"commonPhraseCandidates"`
}

func (d *DetectedPatterns) Empty() bool {
	return d == nil ||
		(d.SentenceLengthDelta == nil && d.Emoji == nil && !d.CallToAction &&
			len(d.BannedPhraseCandidates) == 0 && len(d.CommonPhraseCandidates) == 0)
}

type PatternDetectionService interface {
	DetectPatterns(ctx context.Context, userID uuid.UUID, limit int) (*DetectedPatterns, error)
	DetectFromEdits(edits []*domain.GeneratedPost) *DetectedPatterns
}

type patternDetectionService struct {
	db    *gorm.DB
	log   *logger.Logger
	posts content.GeneratedPostRepo
}

func NewPatternDetectionService(db *gorm.DB, baseLog *logger.Logger, posts content.GeneratedPostRepo) PatternDetectionService {
	return &patternDetectionService{
		db:    db,
		log:   baseLog.With("service", "PatternDetectionService"),
		posts: posts,
	}
}

func (s *patternDetectionService) DetectPatterns(ctx context.Context, userID uuid.UUID, limit int) (*DetectedPatterns, error) {
	if limit <= 0 {
		limit = DefaultPatternWindow
	}
	edits, err := s.posts.GetRecentEdits(ctx, nil, userID, limit)
	if err != nil {
		return nil, err
	}
	return s.DetectFromEdits(edits), nil
}

func (s *patternDetectionService) DetectFromEdits(edits []*domain.GeneratedPost) *DetectedPatterns {
	out := &DetectedPatterns{
		BannedPhraseCandidates: []string{},
		CommonPhraseCandidates: []string{},
	}

	var metas []*domain.EditMetadata
	for _, post := range edits {
		meta, err := post.DecodeEditMetadata()
		if err != nil {
			if s.log != nil {
				s.log.Warn("skipping unreadable edit metadata", "post_id", post.ID.String(), "error", err)
			}
			continue
		}
		if meta != nil {
			metas = append(metas, meta)
		}
	}
	if len(metas) == 0 {
		return out
	}

	out.SentenceLengthDelta = detectSentenceLength(metas)
	out.Emoji = detectEmoji(metas)
	out.CallToAction = detectCallToAction(metas)
	out.BannedPhraseCandidates = phraseCandidates(metas, func(m *domain.EditMetadata) []string { return m.PhrasesRemoved }, MinBannedPhraseEdits)
	out.CommonPhraseCandidates = phraseCandidates(metas, func(m *domain.EditMetadata) []string { return m.PhrasesAdded }, MinConsistentEdits)
	return out
}

// detectSentenceLength reports the mean delta of the dominant
// same-sign group once it reaches the consistency threshold.
// Conflicting equal-strength signals cancel out to "no pattern".
func detectSentenceLength(metas []*domain.EditMetadata) *float64 {
	var longer, shorter []float64
	for _, m := range metas {
		switch {
		case m.SentenceLengthDelta > 0:
			longer = append(longer, m.SentenceLengthDelta)
		case m.SentenceLengthDelta < 0:
			shorter = append(shorter, m.SentenceLengthDelta)
		}
	}

	pick := func(group []float64) *float64 {
		var sum float64
		for _, d := range group {
			sum += d
		}
		mean := sum / float64(len(group))
		return &mean
	}

	switch {
	case len(longer) >= MinConsistentEdits && len(longer) > len(shorter):
		return pick(longer)
	case len(shorter) >= MinConsistentEdits && len(shorter) > len(longer):
		return pick(shorter)
	default:
		return nil
	}
}

func detectEmoji(metas []*domain.EditMetadata) *EmojiPattern {
	var adding []*domain.EditMetadata
	for _, m := range metas {
		if m.EmojiChanges.NetChange > 0 {
			adding = append(adding, m)
		}
	}
	if len(adding) < MinConsistentEdits {
		return nil
	}

	var addedSum int
	for _, m := range adding {
		addedSum += m.EmojiChanges.Added
	}
	freq := int(math.Round(float64(addedSum) / float64(len(adding))))
	if freq < 1 {
		freq = 1
	}
	if freq > domain.EmojiFrequencyMax {
		freq = domain.EmojiFrequencyMax
	}
	return &EmojiPattern{ShouldUse: true, Frequency: freq}
}

func detectCallToAction(metas []*domain.EditMetadata) bool {
	count := 0
	for _, m := range metas {
		for _, phrase := range m.PhrasesAdded {
			if looksLikeCallToAction(phrase) {
				count++
				break
			}
		}
	}
	return count >= MinConsistentEdits
}

// ctaCues are imperative/action openers typical of call-to-action
// endings. Matching is substring on the lowercased phrase.
var ctaCues = []string{
	"follow ", "follow me", "subscribe", "check out", "sign up", "signup",
	"click ", "join ", "share ", "comment ", "dm me", "link in bio",
	"learn more", "read more", "try it", "download", "register",
	"let me know", "drop a",
}

func looksLikeCallToAction(phrase string) bool {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return false
	}
	for _, cue := range ctaCues {
		if strings.Contains(p, cue) || p == strings.TrimSpace(cue) {
			return true
		}
	}
	return false
}

// phraseCandidates counts distinct edits containing each exact phrase
// (no fuzzy matching) and keeps those at or above the threshold.
func phraseCandidates(metas []*domain.EditMetadata, pick func(*domain.EditMetadata) []string, threshold int) []string {
	counts := map[string]int{}
	for _, m := range metas {
		seen := map[string]struct{}{}
		for _, phrase := range pick(m) {
			if phrase == "" {
				continue
			}
			if _, ok := seen[phrase]; ok {
				continue
			}
			seen[phrase] = struct{}{}
			counts[phrase]++
		}
	}

	out := []string{}
	for phrase, n := range counts {
		if n >= threshold {
			out = append(out, phrase)
		}
	}
	sort.Strings(out)
	return out
}
