// Package codec converts scripts between their in-memory form, which may hold
// transient media handles, and their durable form, which holds only inline
// payloads and fetchable URLs.
package codec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

const maxConcurrentReads = 4

type Codec struct {
	store  *media.Store
	logger *slog.Logger
}

func New(store *media.Store, logger *slog.Logger) *Codec {
	return &Codec{store: store, logger: logger}
}

// slot is one media field of a script together with the segment it belongs
// to, or "" for script-level fields.
type slot struct {
	segmentID string
	field     string
	ref       *media.Ref
}

// key groups decode failures: one per segment, one per script-level field.
func (sl slot) key() string {
	if sl.segmentID != "" {
		return "segment/" + sl.segmentID
	}
	return sl.field
}

func slots(s *script.Script) []slot {
	var out []slot
	for i := range s.Segments {
		seg := &s.Segments[i]
		out = append(out,
			slot{seg.ID, "visual.media", &seg.Visual.Media},
			slot{seg.ID, "visual.image", &seg.Visual.Image},
			slot{seg.ID, "visual.thumbnail", &seg.Visual.Thumbnail},
		)
		if seg.Audio != nil {
			out = append(out, slot{seg.ID, "audio.media", &seg.Audio.Media})
		}
	}
	if s.Score != nil {
		out = append(out, slot{"", "score.media", &s.Score.Media})
	}
	if s.Artifact != nil {
		out = append(out, slot{"", "artifact.media", &s.Artifact.Media})
	}
	if s.Preview != nil {
		out = append(out, slot{"", "preview.media", &s.Preview.Media})
	}
	return out
}

// Encode returns the durable form of s. Transient handles are read from the
// store and inlined; fetchable URLs pass through; anything else is dropped
// and logged. Previewed artifacts are not durable and are left out.
func (c *Codec) Encode(ctx context.Context, s *script.Script) (*script.Script, error) {
	out := s.Clone()
	out.Preview = nil
	if out.Artifact != nil && out.Artifact.State == script.ArtifactPreviewed {
		out.Artifact = nil
	}

	all := slots(out)
	inlined := make([]string, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, sl := range all {
		if sl.ref.Data != "" || sl.ref.Handle == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uri, err := c.store.Inline(sl.ref.Handle)
			if err != nil {
				c.warn("dropping unreadable handle", sl, err)
				return nil
			}
			inlined[i] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("encode script %s: %w", s.ID, err)
	}

	var total int
	for i, sl := range all {
		if inlined[i] != "" {
			sl.ref.Data = inlined[i]
		}
		sl.ref.Handle = ""
		if sl.ref.URL != "" && !media.IsFetchable(sl.ref.URL) {
			if sl.ref.Data == "" {
				c.warn("dropping local reference", sl, nil)
			}
			sl.ref.URL = ""
		}
		total += len(sl.ref.Data)
	}

	if c.logger != nil {
		c.logger.Debug("script encoded", "script_id", s.ID, "fields", len(all), "inline_bytes", humanize.Bytes(uint64(total)))
	}
	return out, nil
}

// Decode materializes a durable script. Each inline payload gets a fresh
// transient handle for local playback. A malformed payload drops that one
// field and is reported once per segment, or once per script-level field;
// the rest of the script loads.
// Approved visuals that lose their only source fall back to failed.
func (c *Codec) Decode(durable *script.Script) (*script.Script, []*script.CodecError) {
	out := durable.Clone()
	out.Preview = nil
	var errs []*script.CodecError
	byKey := make(map[string]*script.CodecError)

	for _, sl := range slots(out) {
		sl.ref.Handle = ""
		if sl.ref.Data == "" {
			continue
		}
		mime, data, err := media.DecodeDataURI(sl.ref.Data)
		if err != nil {
			sl.ref.Data = ""
			if cerr, ok := byKey[sl.key()]; ok {
				cerr.Field += "," + sl.field
				cerr.Err = errors.Join(cerr.Err, err)
				continue
			}
			cerr := &script.CodecError{SegmentID: sl.segmentID, Field: sl.field, Err: err}
			byKey[sl.key()] = cerr
			errs = append(errs, cerr)
			if c.logger != nil {
				c.logger.Warn("dropping malformed stored media", "script_id", out.ID, "segment_id", sl.segmentID, "field", sl.field, "error", err)
			}
			continue
		}
		sl.ref.Handle = c.store.Register(data, mime)
	}

	for i := range out.Segments {
		seg := &out.Segments[i]
		if seg.Visual.Status != script.StatusApproved {
			continue
		}
		if _, _, ok := seg.Visual.Resolve(); ok {
			continue
		}
		seg.Visual.Status = script.StatusFailed
		seg.Approved = false
		if c.logger != nil {
			c.logger.Warn("approved visual lost its source on load", "script_id", out.ID, "segment_id", seg.ID)
		}
	}
	if out.Artifact != nil && out.Artifact.State != script.ArtifactPreviewed && !out.Artifact.Durable() {
		out.Artifact = nil
	}
	return out, errs
}

// Release revokes every transient handle held by s.
func (c *Codec) Release(s *script.Script) {
	for _, h := range Handles(s) {
		c.store.Revoke(h)
	}
}

// Handles lists the transient handles referenced by s.
func Handles(s *script.Script) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, sl := range slots(s) {
		if sl.ref.Handle != "" {
			out = append(out, sl.ref.Handle)
		}
	}
	return out
}

func (c *Codec) warn(msg string, sl slot, err error) {
	if c.logger == nil {
		return
	}
	args := []any{"segment_id", sl.segmentID, "field", sl.field}
	if err != nil {
		args = append(args, "error", err)
	}
	c.logger.Warn(msg, args...)
}
