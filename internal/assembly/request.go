// Package assembly turns a script snapshot into the request the external
// renderer consumes.
package assembly

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/heimdex/heimdex-studio/internal/media"
)

const (
	DefaultTransition      = "fade"
	DefaultCaptionPosition = "bottom"
	DefaultCaptionSize     = 1.0
	DefaultCaptionZoom     = 1.0
	DefaultAspectRatio     = "9:16"
)

type Request struct {
	ScriptID    string              `json:"script_id"`
	Title       string              `json:"title,omitempty"`
	AspectRatio string              `json:"aspect_ratio"`
	Segments    []SegmentDescriptor `json:"segments"`
	Score       *ScoreDescriptor    `json:"background_score,omitempty"`
}

type SegmentDescriptor struct {
	SegmentID      string        `json:"segment_id"`
	Kind           media.Kind    `json:"kind"`
	Visual         media.Source  `json:"visual"`
	Audio          *media.Source `json:"audio,omitempty"`
	AudioDurationS float64       `json:"audio_duration_s,omitempty"`
	Crop           Crop          `json:"crop"`
	Transition     string        `json:"transition"`
	Caption        Caption       `json:"caption"`
	Bullets        []string      `json:"bullets,omitempty"`
}

// Crop is the trim window. A nil EndS means the full remaining duration.
type Crop struct {
	StartS float64  `json:"start_s"`
	EndS   *float64 `json:"end_s,omitempty"`
}

type Caption struct {
	Text     string  `json:"text"`
	Position string  `json:"position"`
	Size     float64 `json:"size"`
	Zoom     float64 `json:"zoom"`
}

type ScoreDescriptor struct {
	Source     media.Source `json:"source"`
	Volume     float64      `json:"volume"`
	TrimStartS float64      `json:"trim_start_s"`
	TrimEndS   *float64     `json:"trim_end_s,omitempty"`
}

// SegmentIDs lists descriptor ids in order.
func (r *Request) SegmentIDs() []string {
	ids := make([]string, len(r.Segments))
	for i, d := range r.Segments {
		ids[i] = d.SegmentID
	}
	return ids
}

// Fingerprint identifies the request content. Every field takes part;
// media sources are reduced to their identity so inline payloads are hashed
// rather than embedded, and two requests carrying the same media and edits
// fingerprint identically.
func Fingerprint(r *Request) string {
	if r == nil {
		return ""
	}
	view := *r
	view.Segments = make([]SegmentDescriptor, len(r.Segments))
	for i, d := range r.Segments {
		d.Visual = identityOf(d.Visual)
		if d.Audio != nil {
			a := identityOf(*d.Audio)
			d.Audio = &a
		}
		view.Segments[i] = d
	}
	if r.Score != nil {
		sc := *r.Score
		sc.Source = identityOf(sc.Source)
		view.Score = &sc
	}

	b, _ := json.Marshal(view)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

func identityOf(src media.Source) media.Source {
	return media.Source{URL: src.Identity()}
}
