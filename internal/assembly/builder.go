package assembly

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/heimdex/heimdex-studio/internal/script"
)

// ErrDescriptorMismatch means the built request would not cover every
// eligible segment. Sending it would render a silently truncated video.
var ErrDescriptorMismatch = errors.New("descriptor count does not match eligible segments")

// EditSource resolves the edit set applied to a segment.
type EditSource func(s *script.Script, segmentID string) script.Edit

// CommittedEdits reads only edits saved on the script.
func CommittedEdits(s *script.Script, segmentID string) script.Edit {
	return s.Edits[segmentID].Clone()
}

type Builder struct {
	aspectRatio string
	logger      *slog.Logger
}

func NewBuilder(defaultAspectRatio string, logger *slog.Logger) *Builder {
	if defaultAspectRatio == "" {
		defaultAspectRatio = DefaultAspectRatio
	}
	return &Builder{aspectRatio: defaultAspectRatio, logger: logger}
}

// Build composes the render request for s. It performs no I/O. A nil edit
// source reads committed edits.
func (b *Builder) Build(s *script.Script, edits EditSource) (*Request, error) {
	if s == nil {
		return nil, &script.ValidationError{Op: "build request", Reason: "no script"}
	}
	if edits == nil {
		edits = CommittedEdits
	}

	eligible, excluded := script.Eligibility(s)
	for _, ex := range excluded {
		if ex.Reason == script.ReasonMissingSource && b.logger != nil {
			b.logger.Warn("segment excluded from assembly", "script_id", s.ID, "segment_id", ex.SegmentID, "reason", ex.Reason)
		}
	}
	if len(eligible) == 0 {
		return nil, &script.ValidationError{Op: "build request", Reason: "no eligible segments"}
	}

	req := &Request{
		ScriptID:    s.ID,
		Title:       s.Title,
		AspectRatio: s.AspectRatio,
		Segments:    make([]SegmentDescriptor, 0, len(eligible)),
	}
	if req.AspectRatio == "" {
		req.AspectRatio = b.aspectRatio
	}

	for _, cand := range eligible {
		seg, err := s.Segment(cand.SegmentID)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("eligible segment vanished", "segment_id", cand.SegmentID)
			}
			continue
		}
		req.Segments = append(req.Segments, describe(seg, cand, edits(s, seg.ID)))
	}

	if len(req.Segments) != len(eligible) {
		return nil, fmt.Errorf("%w: %d descriptors for %d eligible", ErrDescriptorMismatch, len(req.Segments), len(eligible))
	}

	if src, ok := s.Score.Resolve(); ok && s.Score.Approved {
		req.Score = &ScoreDescriptor{
			Source:     src,
			Volume:     clamp01(s.Score.Volume),
			TrimStartS: s.Score.TrimStartS,
			TrimEndS:   s.Score.TrimEndS,
		}
	}
	return req, nil
}

func describe(seg *script.Segment, cand script.Candidate, e script.Edit) SegmentDescriptor {
	d := SegmentDescriptor{
		SegmentID:  seg.ID,
		Kind:       cand.Kind,
		Visual:     cand.Visual,
		Audio:      cand.Audio,
		Transition: DefaultTransition,
		Caption: Caption{
			Position: DefaultCaptionPosition,
			Size:     DefaultCaptionSize,
			Zoom:     DefaultCaptionZoom,
		},
	}
	if cand.Audio != nil && seg.Audio != nil {
		d.AudioDurationS = seg.Audio.DurationS
	}

	if seg.Visual.Transition != "" {
		d.Transition = seg.Visual.Transition
	}
	if e.Transition != nil && *e.Transition != "" {
		d.Transition = *e.Transition
	}

	if e.Crop != nil {
		d.Crop = Crop{StartS: e.Crop.StartS}
		if e.Crop.EndS != nil {
			end := *e.Crop.EndS
			d.Crop.EndS = &end
		}
	}

	d.Caption.Text = captionText(seg, e)
	if seg.Visual.Caption.Position != "" {
		d.Caption.Position = seg.Visual.Caption.Position
	}
	if e.CaptionPosition != nil && *e.CaptionPosition != "" {
		d.Caption.Position = *e.CaptionPosition
	}
	if seg.Visual.Caption.Size > 0 {
		d.Caption.Size = seg.Visual.Caption.Size
	}
	if e.CaptionSize != nil && *e.CaptionSize > 0 {
		d.Caption.Size = *e.CaptionSize
	}
	if seg.Visual.Caption.Zoom > 0 {
		d.Caption.Zoom = seg.Visual.Caption.Zoom
	}
	if e.CaptionZoom != nil && *e.CaptionZoom > 0 {
		d.Caption.Zoom = *e.CaptionZoom
	}

	bullets := seg.Bullets
	if e.Bullets != nil {
		bullets = e.Bullets
	}
	for _, bl := range bullets {
		if bl = strings.TrimSpace(bl); bl != "" {
			d.Bullets = append(d.Bullets, bl)
		}
	}
	return d
}

// captionText falls back from the edit, to the visual's caption, to the
// narration. Never empty when narration is non-empty.
func captionText(seg *script.Segment, e script.Edit) string {
	for _, candidate := range []string{deref(e.CaptionText), seg.Visual.Caption.Text, seg.Narration} {
		if t := strings.TrimSpace(norm.NFC.String(candidate)); t != "" {
			return t
		}
	}
	return ""
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
