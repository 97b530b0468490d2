package services

import (
	"fmt"

	"github.com/yungbote/postforge-backend/internal/domain"
)

const (
	OpSet       = "set"
	OpIncrement = "increment"
)

// FieldOp is one field-level mutation addressed by a dotted path,
// e.g. {Field: "tone.formality", Value: 7}.
type FieldOp struct {
	Field string
	Value interface{}
	Op    string
}

// asInt accepts the numeric shapes a JSON boundary produces.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(v interface{}) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string{}, s...), true
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

func inRange(v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("value %d out of range [%d,%d]", v, lo, hi)
	}
	return nil
}

// validateFieldOp checks an operation against the field's declared
// constraints without touching the store. Increments of bounded ints
// are range-checked again after application against the loaded value.
func validateFieldOp(op FieldOp) error {
	switch op.Op {
	case "", OpSet:
		return validateSet(op.Field, op.Value)
	case OpIncrement:
		if _, ok := asInt(op.Value); !ok {
			return fmt.Errorf("field %q: increment delta must be an integer", op.Field)
		}
		switch op.Field {
		case "learningIterations",
			"tone.formality", "tone.enthusiasm", "tone.directness", "tone.humor", "tone.emotionality",
			"writingTraits.avgSentenceLength", "writingTraits.emojiFrequency":
			return nil
		default:
			return fmt.Errorf("field %q does not support increment", op.Field)
		}
	default:
		return fmt.Errorf("unknown operation %q", op.Op)
	}
}

func validateSet(field string, value interface{}) error {
	switch field {
	case "voiceType":
		s, ok := asString(value)
		if !ok || !domain.VoiceType(s).Valid() {
			return fmt.Errorf("voiceType invalid: %v", value)
		}
	case "vocabularyLevel":
		s, ok := asString(value)
		if !ok || !domain.VocabularyLevel(s).Valid() {
			return fmt.Errorf("vocabularyLevel invalid: %v", value)
		}
	case "profileSource":
		s, ok := asString(value)
		if !ok || !domain.ProfileSource(s).Valid() {
			return fmt.Errorf("profileSource invalid: %v", value)
		}
	case "tone.formality", "tone.enthusiasm", "tone.directness", "tone.humor", "tone.emotionality":
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("%s must be an integer", field)
		}
		if err := inRange(n, domain.ToneMin, domain.ToneMax); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	case "writingTraits.avgSentenceLength":
		n, ok := asInt(value)
		if !ok || n <= 0 {
			return fmt.Errorf("writingTraits.avgSentenceLength must be a positive integer")
		}
	case "writingTraits.emojiFrequency":
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("writingTraits.emojiFrequency must be an integer")
		}
		if err := inRange(n, domain.EmojiFrequencyMin, domain.EmojiFrequencyMax); err != nil {
			return fmt.Errorf("writingTraits.emojiFrequency: %w", err)
		}
	case "writingTraits.usesQuestionsOften", "writingTraits.usesEmojis", "writingTraits.usesBulletPoints",
		"writingTraits.usesShortParagraphs", "writingTraits.usesHooks":
		if _, ok := asBool(value); !ok {
			return fmt.Errorf("%s must be a boolean", field)
		}
	case "structurePreferences.introStyle":
		s, ok := asString(value)
		if !ok || !domain.IntroStyle(s).Valid() {
			return fmt.Errorf("structurePreferences.introStyle invalid: %v", value)
		}
	case "structurePreferences.bodyStyle":
		s, ok := asString(value)
		if !ok || !domain.BodyStyle(s).Valid() {
			return fmt.Errorf("structurePreferences.bodyStyle invalid: %v", value)
		}
	case "structurePreferences.endingStyle":
		s, ok := asString(value)
		if !ok || !domain.EndingStyle(s).Valid() {
			return fmt.Errorf("structurePreferences.endingStyle invalid: %v", value)
		}
	case "commonPhrases", "bannedPhrases", "samplePosts":
		if _, ok := asStringSlice(value); !ok {
			return fmt.Errorf("%s must be a list of strings", field)
		}
	case "learningIterations":
		n, ok := asInt(value)
		if !ok || n < 0 {
			return fmt.Errorf("learningIterations must be a non-negative integer")
		}
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}
	return nil
}

// applyFieldOp mutates the profile in place. Callers validate with
// validateFieldOp first; the post-mutation doc still goes through
// StyleProfile.Validate before any write.
func applyFieldOp(p *domain.StyleProfile, op FieldOp) error {
	if op.Op == OpIncrement {
		return applyIncrement(p, op)
	}
	switch op.Field {
	case "voiceType":
		s, _ := asString(op.Value)
		p.VoiceType = domain.VoiceType(s)
	case "vocabularyLevel":
		s, _ := asString(op.Value)
		p.VocabularyLevel = domain.VocabularyLevel(s)
	case "profileSource":
		s, _ := asString(op.Value)
		p.ProfileSource = domain.ProfileSource(s)
	case "tone.formality":
		p.Tone.Formality, _ = asInt(op.Value)
	case "tone.enthusiasm":
		p.Tone.Enthusiasm, _ = asInt(op.Value)
	case "tone.directness":
		p.Tone.Directness, _ = asInt(op.Value)
	case "tone.humor":
		p.Tone.Humor, _ = asInt(op.Value)
	case "tone.emotionality":
		p.Tone.Emotionality, _ = asInt(op.Value)
	case "writingTraits.avgSentenceLength":
		p.WritingTraits.AvgSentenceLength, _ = asInt(op.Value)
	case "writingTraits.emojiFrequency":
		p.WritingTraits.EmojiFrequency, _ = asInt(op.Value)
	case "writingTraits.usesQuestionsOften":
		p.WritingTraits.UsesQuestionsOften, _ = asBool(op.Value)
	case "writingTraits.usesEmojis":
		p.WritingTraits.UsesEmojis, _ = asBool(op.Value)
	case "writingTraits.usesBulletPoints":
		p.WritingTraits.UsesBulletPoints, _ = asBool(op.Value)
	case "writingTraits.usesShortParagraphs":
		p.WritingTraits.UsesShortParagraphs, _ = asBool(op.Value)
	case "writingTraits.usesHooks":
		p.WritingTraits.UsesHooks, _ = asBool(op.Value)
	case "structurePreferences.introStyle":
		s, _ := asString(op.Value)
		p.StructurePreferences.IntroStyle = domain.IntroStyle(s)
	case "structurePreferences.bodyStyle":
		s, _ := asString(op.Value)
		p.StructurePreferences.BodyStyle = domain.BodyStyle(s)
	case "structurePreferences.endingStyle":
		s, _ := asString(op.Value)
		p.StructurePreferences.EndingStyle = domain.EndingStyle(s)
	case "commonPhrases":
		p.CommonPhrases, _ = asStringSlice(op.Value)
	case "bannedPhrases":
		p.BannedPhrases, _ = asStringSlice(op.Value)
	case "samplePosts":
		p.SamplePosts, _ = asStringSlice(op.Value)
	case "learningIterations":
		p.LearningIterations, _ = asInt(op.Value)
	default:
		return fmt.Errorf("unknown profile field %q", op.Field)
	}
	return nil
}

func applyIncrement(p *domain.StyleProfile, op FieldOp) error {
	delta, _ := asInt(op.Value)
	target := map[string]*int{
		"learningIterations":              &p.LearningIterations,
		"tone.formality":                  &p.Tone.Formality,
		"tone.enthusiasm":                 &p.Tone.Enthusiasm,
		"tone.directness":                 &p.Tone.Directness,
		"tone.humor":                      &p.Tone.Humor,
		"tone.emotionality":               &p.Tone.Emotionality,
		"writingTraits.avgSentenceLength": &p.WritingTraits.AvgSentenceLength,
		"writingTraits.emojiFrequency":    &p.WritingTraits.EmojiFrequency,
	}[op.Field]
	if target == nil {
		return fmt.Errorf("field %q does not support increment", op.Field)
	}
	*target += delta
	return nil
}
