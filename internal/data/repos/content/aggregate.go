package content

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultAggregateLimit is the window of most-recent edits considered
// when summarizing patterns.
const DefaultAggregateLimit = 20

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type StructuralCounts struct {
	BulletPointsAdded   int `json:"bulletPointsAdded"`
	BulletPointsRemoved int `json:"bulletPointsRemoved"`
	ParagraphsShortened int `json:"paragraphsShortened"`
	HooksAdded          int `json:"hooksAdded"`
}

// PatternSummary is the idempotent aggregation over a user's recent
// edit window. A user with no qualifying edits gets the zero value.
type PatternSummary struct {
	TotalEdits             int              `json:"totalEdits"`
	AvgSentenceLengthDelta float64          `json:"avgSentenceLengthDelta"`
	EmojiAdded             int              `json:"emojiAdded"`
	EmojiRemoved           int              `json:"emojiRemoved"`
	EmojiNetChange         int              `json:"emojiNetChange"`
	ToneShifts             []LabelCount     `json:"toneShifts"`
	PhrasesAdded           []LabelCount     `json:"phrasesAdded"`
	PhrasesRemoved         []LabelCount     `json:"phrasesRemoved"`
	Structural             StructuralCounts `json:"structural"`
}

// AggregateEditPatterns summarizes the most recent limit edits. Tone
// and phrase tables only report labels seen more than once, sorted by
// descending count. Never errors on "no data".
func (gr *generatedPostRepo) AggregateEditPatterns(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) (*PatternSummary, error) {
	if limit <= 0 {
		limit = DefaultAggregateLimit
	}

	edits, err := gr.GetRecentEdits(ctx, tx, userID, limit)
	if err != nil {
		return nil, err
	}

	summary := &PatternSummary{
		ToneShifts:     []LabelCount{},
		PhrasesAdded:   []LabelCount{},
		PhrasesRemoved: []LabelCount{},
	}
	if len(edits) == 0 {
		return summary, nil
	}

	var deltaSum float64
	toneShifts := map[string]int{}
	phrasesAdded := map[string]int{}
	phrasesRemoved := map[string]int{}

	for _, post := range edits {
		meta, err := post.DecodeEditMetadata()
		if err != nil {
			gr.log.Warn("skipping unreadable edit metadata", "post_id", post.ID.String(), "error", err)
			continue
		}
		if meta == nil {
			continue
		}
		summary.TotalEdits++
		deltaSum += meta.SentenceLengthDelta
		summary.EmojiAdded += meta.EmojiChanges.Added
		summary.EmojiRemoved += meta.EmojiChanges.Removed
		summary.EmojiNetChange += meta.EmojiChanges.NetChange

		if meta.ToneShift != "" {
			toneShifts[meta.ToneShift]++
		}
		// Dedupe inside one edit so a phrase repeated in a single edit
		// counts once toward the cross-edit threshold.
		for _, phrase := range dedupe(meta.PhrasesAdded) {
			phrasesAdded[phrase]++
		}
		for _, phrase := range dedupe(meta.PhrasesRemoved) {
			phrasesRemoved[phrase]++
		}

		if meta.StructuralChanges.AddedBulletPoints {
			summary.Structural.BulletPointsAdded++
		}
		if meta.StructuralChanges.RemovedBulletPoints {
			summary.Structural.BulletPointsRemoved++
		}
		if meta.StructuralChanges.ShortenedParagraphs {
			summary.Structural.ParagraphsShortened++
		}
		if meta.StructuralChanges.AddedHook {
			summary.Structural.HooksAdded++
		}
	}

	if summary.TotalEdits > 0 {
		summary.AvgSentenceLengthDelta = deltaSum / float64(summary.TotalEdits)
	}
	summary.ToneShifts = topRepeated(toneShifts)
	summary.PhrasesAdded = topRepeated(phrasesAdded)
	summary.PhrasesRemoved = topRepeated(phrasesRemoved)
	return summary, nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// topRepeated keeps labels occurring more than once, descending by
// count, label order tie-broken alphabetically for determinism.
func topRepeated(counts map[string]int) []LabelCount {
	out := []LabelCount{}
	for label, count := range counts {
		if count > 1 {
			out = append(out, LabelCount{Label: label, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
