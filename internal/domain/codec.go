package domain

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

func EncodeStyleProfile(p *StyleProfile) (datatypes.JSON, error) {
	if p == nil {
		return nil, fmt.Errorf("nil style profile")
	}
	p.Normalize()
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode style profile: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func (r *StyleProfileRecord) DecodeDoc() (*StyleProfile, error) {
	if r == nil || len(r.Doc) == 0 {
		return nil, fmt.Errorf("style profile record has no doc")
	}
	var p StyleProfile
	if err := json.Unmarshal(r.Doc, &p); err != nil {
		return nil, fmt.Errorf("decode style profile: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func EncodeOverrides(ov *ManualOverrides) (datatypes.JSON, error) {
	if ov == nil {
		return nil, fmt.Errorf("nil manual overrides")
	}
	raw, err := json.Marshal(ov)
	if err != nil {
		return nil, fmt.Errorf("encode manual overrides: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func (r *ManualOverrideRecord) DecodeDoc() (*ManualOverrides, error) {
	if r == nil || len(r.Doc) == 0 {
		return &ManualOverrides{}, nil
	}
	var ov ManualOverrides
	if err := json.Unmarshal(r.Doc, &ov); err != nil {
		return nil, fmt.Errorf("decode manual overrides: %w", err)
	}
	return &ov, nil
}

func EncodeEditMetadata(m *EditMetadata) (datatypes.JSON, error) {
	if m == nil {
		return nil, fmt.Errorf("nil edit metadata")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode edit metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// DecodeEditMetadata returns nil when the post carries no metadata
// (never written, or pruned).
func (p *GeneratedPost) DecodeEditMetadata() (*EditMetadata, error) {
	if p == nil || len(p.EditMetadata) == 0 {
		return nil, nil
	}
	var m EditMetadata
	if err := json.Unmarshal(p.EditMetadata, &m); err != nil {
		return nil, fmt.Errorf("decode edit metadata: %w", err)
	}
	return &m, nil
}
