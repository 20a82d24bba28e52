package studio

import (
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

// ScriptRecord is a persisted script. Document holds the durable JSON form;
// the counts are denormalized for listings.
type ScriptRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Document      []byte    `json:"-"`
	Version       int64     `json:"version"`
	SegmentCount  int       `json:"segment_count"`
	ApprovedCount int       `json:"approved_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	JobKindPreview  = "preview"
	JobKindAssemble = "assemble"
	JobKindAuto     = "auto_assemble"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusStale     = "stale"
)

// RenderJob tracks one call to the renderer.
type RenderJob struct {
	ID          string    `json:"id"`
	ScriptID    string    `json:"script_id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Fingerprint string    `json:"fingerprint"`
	Version     int64     `json:"version"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MediaInput is media delivered by a provider or the user. Exactly one of
// the fields is expected: a remote URL, an inline data URI, or raw bytes
// from a local upload. Uploaded bytes are kept as a transient handle until
// the owning channel is approved or the script is saved.
type MediaInput struct {
	URL   string `json:"url,omitempty"`
	Data  string `json:"data,omitempty"`
	Bytes []byte `json:"-"`
	Mime  string `json:"mime,omitempty"`
}

func (m *MediaInput) empty() bool {
	return m == nil || (m.URL == "" && m.Data == "" && len(m.Bytes) == 0)
}

// NewSegment seeds one segment of a new script.
type NewSegment struct {
	Narration string     `json:"narration" yaml:"narration"`
	Bullets   []string   `json:"bullets,omitempty" yaml:"bullets"`
	StartS    *float64   `json:"start_s,omitempty" yaml:"start_s"`
	EndS      *float64   `json:"end_s,omitempty" yaml:"end_s"`
	Mode      media.Kind `json:"mode,omitempty" yaml:"mode"`
	Prompt    string     `json:"prompt,omitempty" yaml:"prompt"`
}

// NewScript is the result of splitting a narration into segments.
type NewScript struct {
	Title       string       `json:"title" yaml:"title"`
	AspectRatio string       `json:"aspect_ratio,omitempty" yaml:"aspect_ratio"`
	Segments    []NewSegment `json:"segments" yaml:"segments"`
}

// VisualUpdate lands a generation or search result on a visual.
type VisualUpdate struct {
	Mode      media.Kind      `json:"mode,omitempty"`
	Media     *MediaInput     `json:"media,omitempty"`
	Image     *MediaInput     `json:"image,omitempty"`
	Thumbnail *MediaInput     `json:"thumbnail,omitempty"`
	Prompt    *string         `json:"prompt,omitempty"`
	License   *script.License `json:"license,omitempty"`
}

// AudioUpdate lands synthesized or uploaded narration on a segment.
type AudioUpdate struct {
	Media     *MediaInput `json:"media"`
	DurationS float64     `json:"duration_s"`
	Custom    bool        `json:"custom"`
	VoiceID   string      `json:"voice_id,omitempty"`
}

type ScoreUpdate struct {
	Media      *MediaInput       `json:"media"`
	Volume     float64           `json:"volume"`
	TrimStartS float64           `json:"trim_start_s"`
	TrimEndS   *float64          `json:"trim_end_s,omitempty"`
	Provenance script.Provenance `json:"provenance"`
	License    *script.License   `json:"license,omitempty"`
}

// Stats summarizes the library for the tray and health output.
type Stats struct {
	Scripts          int `json:"scripts"`
	Segments         int `json:"segments"`
	ApprovedSegments int `json:"approved_segments"`
}

func NewID() string {
	return uuid.NewString()
}
