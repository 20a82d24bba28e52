// Package script holds the studio's aggregate: a narrated script split into
// segments, each with a visual and an optional narration track, plus the
// shared background score and the assembled artifact.
//
// Values in this package are treated as immutable snapshots. Mutations clone
// the aggregate, change the clone, and publish it as a whole.
package script

import (
	"time"

	"github.com/heimdex/heimdex-studio/internal/media"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

type Provenance string

const (
	ProvenanceGenerated Provenance = "generated"
	ProvenanceUploaded  Provenance = "uploaded"
)

type ArtifactState string

const (
	ArtifactPreviewed ArtifactState = "previewed"
	ArtifactAssembled ArtifactState = "assembled"
	ArtifactApproved  ArtifactState = "approved"
	ArtifactExported  ArtifactState = "exported"
)

type Script struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	AspectRatio   string           `json:"aspect_ratio,omitempty"`
	Segments      []Segment        `json:"segments"`
	Score         *BackgroundScore `json:"score,omitempty"`
	Edits         map[string]Edit  `json:"edits,omitempty"`
	Artifact      *Artifact        `json:"artifact,omitempty"`
	Preview       *Artifact        `json:"preview,omitempty"`
	AutoAssembled bool             `json:"auto_assembled"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type Segment struct {
	ID        string   `json:"id"`
	Narration string   `json:"narration"`
	Bullets   []string `json:"bullets,omitempty"`
	StartS    *float64 `json:"start_s,omitempty"`
	EndS      *float64 `json:"end_s,omitempty"`
	Approved  bool     `json:"approved"`
	Visual    Visual   `json:"visual"`
	Audio     *Audio   `json:"audio,omitempty"`
}

type Visual struct {
	Mode       media.Kind `json:"mode"`
	Media      media.Ref  `json:"media"`
	Image      media.Ref  `json:"image"`
	Thumbnail  media.Ref  `json:"thumbnail"`
	Transition string     `json:"transition,omitempty"`
	Caption    Caption    `json:"caption"`
	Status     Status     `json:"status"`
	Prompt     string     `json:"prompt,omitempty"`
	License    *License   `json:"license,omitempty"`
}

type Caption struct {
	Text     string  `json:"text,omitempty"`
	Position string  `json:"position,omitempty"`
	Size     float64 `json:"size,omitempty"`
	Zoom     float64 `json:"zoom,omitempty"`
}

type Audio struct {
	Media     media.Ref `json:"media"`
	DurationS float64   `json:"duration_s"`
	Status    Status    `json:"status"`
	Custom    bool      `json:"custom"`
	VoiceID   string    `json:"voice_id,omitempty"`
}

type BackgroundScore struct {
	Media      media.Ref  `json:"media"`
	Volume     float64    `json:"volume"`
	TrimStartS float64    `json:"trim_start_s"`
	TrimEndS   *float64   `json:"trim_end_s,omitempty"`
	Approved   bool       `json:"approved"`
	Provenance Provenance `json:"provenance"`
	License    *License   `json:"license,omitempty"`
}

type License struct {
	Source      string `json:"source,omitempty"`
	Attribution string `json:"attribution,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Artifact is the rendered video. Only a Data payload makes it durable.
// Previews are held separately from the assembled artifact and never
// persisted.
type Artifact struct {
	Media       media.Ref     `json:"media"`
	Mime        string        `json:"mime,omitempty"`
	DurationS   float64       `json:"duration_s"`
	State       ArtifactState `json:"state"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	ExportedAt  *time.Time    `json:"exported_at,omitempty"`
}

// Durable reports whether the artifact carries a payload that can be
// downloaded after a reload.
func (a *Artifact) Durable() bool {
	return a != nil && a.Media.Data != ""
}

// Edit is a sparse set of per-segment overrides. Nil fields are unset.
type Edit struct {
	Crop            *Crop    `json:"crop,omitempty"`
	Transition      *string  `json:"transition,omitempty"`
	CaptionText     *string  `json:"caption_text,omitempty"`
	CaptionPosition *string  `json:"caption_position,omitempty"`
	CaptionSize     *float64 `json:"caption_size,omitempty"`
	CaptionZoom     *float64 `json:"caption_zoom,omitempty"`
	Bullets         []string `json:"bullets"`
}

// Crop trims a segment's media. A nil EndS runs to the end of the media.
type Crop struct {
	StartS float64  `json:"start_s"`
	EndS   *float64 `json:"end_s,omitempty"`
}

func (e Edit) IsZero() bool {
	return e.Crop == nil && e.Transition == nil && e.CaptionText == nil &&
		e.CaptionPosition == nil && e.CaptionSize == nil && e.CaptionZoom == nil &&
		e.Bullets == nil
}

// FindSegment returns the index of the segment with id, or -1.
func (s *Script) FindSegment(id string) int {
	for i := range s.Segments {
		if s.Segments[i].ID == id {
			return i
		}
	}
	return -1
}

// Segment returns a pointer into s for in-place mutation of a clone.
func (s *Script) Segment(id string) (*Segment, error) {
	i := s.FindSegment(id)
	if i < 0 {
		return nil, &NotFoundError{Kind: "segment", ID: id}
	}
	return &s.Segments[i], nil
}

// ApprovedCount returns the number of segments with an approved visual.
func (s *Script) ApprovedCount() int {
	n := 0
	for i := range s.Segments {
		if s.Segments[i].Approved {
			n++
		}
	}
	return n
}

func (v Visual) resolverInput() media.Visual {
	return media.Visual{Mode: v.Mode, Media: v.Media, Image: v.Image}
}

// Resolve returns the transmittable source for the visual.
func (v Visual) Resolve() (media.Source, media.Kind, bool) {
	return media.ResolveVisual(v.resolverInput())
}

// Resolve returns the transmittable source for the narration track.
func (a *Audio) Resolve() (media.Source, bool) {
	if a == nil {
		return media.Source{}, false
	}
	return media.ResolveAudio(a.Media)
}

// Resolve returns the transmittable source for the background score.
func (b *BackgroundScore) Resolve() (media.Source, bool) {
	if b == nil {
		return media.Source{}, false
	}
	return media.ResolveAudio(b.Media)
}
