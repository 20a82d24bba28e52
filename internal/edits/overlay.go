// Package edits tracks unsaved per-segment edits on top of the edits already
// committed to a script.
package edits

import (
	"reflect"
	"slices"
	"sync"

	"github.com/heimdex/heimdex-studio/internal/script"
)

// Overlay holds pending edits per script and segment. Committed edits live
// on the script itself; only they survive a reload.
type Overlay struct {
	mu      sync.Mutex
	pending map[string]map[string]script.Edit
}

func NewOverlay() *Overlay {
	return &Overlay{pending: make(map[string]map[string]script.Edit)}
}

// Merge layers over on top of base field by field. Set fields in over win.
func Merge(base, over script.Edit) script.Edit {
	out := base.Clone()
	if over.Crop != nil {
		out.Crop = over.Clone().Crop
	}
	if over.Transition != nil {
		v := *over.Transition
		out.Transition = &v
	}
	if over.CaptionText != nil {
		v := *over.CaptionText
		out.CaptionText = &v
	}
	if over.CaptionPosition != nil {
		v := *over.CaptionPosition
		out.CaptionPosition = &v
	}
	if over.CaptionSize != nil {
		v := *over.CaptionSize
		out.CaptionSize = &v
	}
	if over.CaptionZoom != nil {
		v := *over.CaptionZoom
		out.CaptionZoom = &v
	}
	// An empty, non-nil list clears the bullets and must stay non-nil.
	if over.Bullets != nil {
		out.Bullets = slices.Clone(over.Bullets)
	}
	return out
}

// Stage merges patch into the pending edit for a segment.
func (o *Overlay) Stage(scriptID, segmentID string, patch script.Edit) script.Edit {
	o.mu.Lock()
	defer o.mu.Unlock()

	segs, ok := o.pending[scriptID]
	if !ok {
		segs = make(map[string]script.Edit)
		o.pending[scriptID] = segs
	}
	merged := Merge(segs[segmentID], patch)
	segs[segmentID] = merged
	return merged.Clone()
}

// Pending returns a copy of the pending edit for a segment.
func (o *Overlay) Pending(scriptID, segmentID string) (script.Edit, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.pending[scriptID][segmentID]
	if !ok {
		return script.Edit{}, false
	}
	return e.Clone(), true
}

// Effective resolves committed and pending edits for a segment, pending
// winning field by field.
func (o *Overlay) Effective(s *script.Script, segmentID string) script.Edit {
	committed := s.Edits[segmentID]
	pending, ok := o.Pending(s.ID, segmentID)
	if !ok {
		return committed.Clone()
	}
	return Merge(committed, pending)
}

// Committed ignores pending edits. Assembly reads through it once pending
// edits have been folded in.
func Committed(s *script.Script, segmentID string) script.Edit {
	return s.Edits[segmentID].Clone()
}

// Dirty lists segments whose pending edit would change the committed edit.
func (o *Overlay) Dirty(s *script.Script) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var ids []string
	for id, pending := range o.pending[s.ID] {
		if !reflect.DeepEqual(Merge(s.Edits[id], pending), s.Edits[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// CommitInto folds pending edits into s (a clone the caller owns) and
// returns the snapshots that were applied. An empty segment list commits
// every segment. Pending state is left untouched until Settle is called, so
// a failed save loses nothing.
func (o *Overlay) CommitInto(s *script.Script, segmentIDs ...string) map[string]script.Edit {
	o.mu.Lock()
	defer o.mu.Unlock()

	src := o.pending[s.ID]
	applied := make(map[string]script.Edit)
	if len(src) == 0 {
		return applied
	}
	if len(segmentIDs) == 0 {
		for id := range src {
			segmentIDs = append(segmentIDs, id)
		}
	}

	for _, id := range segmentIDs {
		pending, ok := src[id]
		if !ok || s.FindSegment(id) < 0 {
			continue
		}
		merged := Merge(s.Edits[id], pending)
		if reflect.DeepEqual(merged, s.Edits[id]) {
			applied[id] = pending.Clone()
			continue
		}
		if s.Edits == nil {
			s.Edits = make(map[string]script.Edit)
		}
		s.Edits[id] = merged
		applied[id] = pending.Clone()
	}
	return applied
}

// Settle clears pending edits that were committed, unless they changed
// after CommitInto took its snapshot.
func (o *Overlay) Settle(scriptID string, applied map[string]script.Edit) {
	o.mu.Lock()
	defer o.mu.Unlock()

	segs := o.pending[scriptID]
	for id, snap := range applied {
		if cur, ok := segs[id]; ok && reflect.DeepEqual(cur, snap) {
			delete(segs, id)
		}
	}
	if len(segs) == 0 {
		delete(o.pending, scriptID)
	}
}

// Discard drops pending edits for the given segments, or all of them.
func (o *Overlay) Discard(scriptID string, segmentIDs ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(segmentIDs) == 0 {
		delete(o.pending, scriptID)
		return
	}
	segs := o.pending[scriptID]
	for _, id := range segmentIDs {
		delete(segs, id)
	}
	if len(segs) == 0 {
		delete(o.pending, scriptID)
	}
}
