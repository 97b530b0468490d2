package domain

import (
	"testing"
	"time"
)

func sampleProfile() *StyleProfile {
	return &StyleProfile{
		VoiceType: VoiceAnalytical,
		Tone: ToneMetrics{
			Formality:    6,
			Enthusiasm:   4,
			Directness:   7,
			Humor:        2,
			Emotionality: 3,
		},
		WritingTraits: WritingTraits{AvgSentenceLength: 18, EmojiFrequency: 1, UsesEmojis: true},
		StructurePreferences: StructurePreferences{
			IntroStyle:  IntroStatistic,
			BodyStyle:   BodyNumberedList,
			EndingStyle: EndingThought,
		},
		VocabularyLevel: VocabularyAdvanced,
		ProfileSource:   SourceFile,
		LastUpdated:     time.Now().UTC(),
	}
}

func TestStyleProfileValidate(t *testing.T) {
	if err := sampleProfile().Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*StyleProfile)
	}{
		{"voiceType", func(p *StyleProfile) { p.VoiceType = "shouty" }},
		{"tone low", func(p *StyleProfile) { p.Tone.Formality = 0 }},
		{"tone high", func(p *StyleProfile) { p.Tone.Enthusiasm = 11 }},
		{"sentence length", func(p *StyleProfile) { p.WritingTraits.AvgSentenceLength = 0 }},
		{"emoji frequency", func(p *StyleProfile) { p.WritingTraits.EmojiFrequency = 6 }},
		{"intro style", func(p *StyleProfile) { p.StructurePreferences.IntroStyle = "meme" }},
		{"vocabulary", func(p *StyleProfile) { p.VocabularyLevel = "fancy" }},
		{"source", func(p *StyleProfile) { p.ProfileSource = "guess" }},
		{"iterations", func(p *StyleProfile) { p.LearningIterations = -1 }},
	}
	for _, tc := range cases {
		p := sampleProfile()
		tc.mutate(p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation failure", tc.name)
		}
	}
}

func TestStyleProfileCloneIsDeep(t *testing.T) {
	p := sampleProfile()
	p.CommonPhrases = []string{"to be fair"}

	cp := p.Clone()
	cp.CommonPhrases[0] = "changed"
	cp.Tone.Humor = 9

	if p.CommonPhrases[0] != "to be fair" {
		t.Fatal("clone shares the phrase slice")
	}
	if p.Tone.Humor != 2 {
		t.Fatal("clone shares tone state")
	}
}

func TestEncodeDecodeStyleProfile(t *testing.T) {
	p := sampleProfile()
	raw, err := EncodeStyleProfile(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	rec := &StyleProfileRecord{Doc: raw}
	got, err := rec.DecodeDoc()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.VoiceType != p.VoiceType || got.Tone != p.Tone || got.WritingTraits != p.WritingTraits {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CommonPhrases == nil || got.BannedPhrases == nil || got.SamplePosts == nil {
		t.Fatal("decode must normalize nil slices")
	}
}

func TestDecodeEditMetadataAbsent(t *testing.T) {
	p := &GeneratedPost{}
	meta, err := p.DecodeEditMetadata()
	if err != nil {
		t.Fatalf("decode absent metadata: %v", err)
	}
	if meta != nil {
		t.Fatalf("absent metadata must decode to nil, got %+v", meta)
	}
}

func TestPinZeroValueIsUnpinned(t *testing.T) {
	var ov ManualOverrides
	if ov.Tone.Pinned || ov.WritingTraits.Pinned || ov.StructurePreferences.Pinned {
		t.Fatal("zero overrides must pin nothing")
	}

	pinned := PinOf(ToneMetrics{Formality: 9})
	if !pinned.Pinned || pinned.Value.Formality != 9 {
		t.Fatalf("PinOf lost its value: %+v", pinned)
	}
}
