// Package studio owns the live scripts. Every mutation clones the current
// snapshot, changes the clone, persists its durable form and then publishes
// it, so readers always see an internally consistent script.
package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heimdex/heimdex-studio/internal/assembly"
	"github.com/heimdex/heimdex-studio/internal/codec"
	"github.com/heimdex/heimdex-studio/internal/edits"
	"github.com/heimdex/heimdex-studio/internal/logging"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/render"
	"github.com/heimdex/heimdex-studio/internal/scheduler"
	"github.com/heimdex/heimdex-studio/internal/script"
)

// errNoChange aborts a mutation without bumping the version.
var errNoChange = errors.New("no change")

type ServiceConfig struct {
	Repository  Repository
	Store       *media.Store
	Renderer    render.Client
	Distributor render.Distributor
	AspectRatio string
	Logger      *slog.Logger
}

type Service struct {
	repo        Repository
	store       *media.Store
	codec       *codec.Codec
	builder     *assembly.Builder
	overlay     *edits.Overlay
	renderer    render.Client
	distributor render.Distributor
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	scripts  sync.Map // id -> *atomic.Pointer[script.Script]
	tickets  map[string]uint64
	warnings sync.Map // id -> []*script.CodecError

	sched atomic.Pointer[scheduler.Scheduler]
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = media.NewStore(logger)
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewStubClient(logger)
	}
	distributor := cfg.Distributor
	if distributor == nil {
		distributor = render.NewStubDistributor(logger)
	}
	return &Service{
		repo:        cfg.Repository,
		store:       store,
		codec:       codec.New(store, logger),
		builder:     assembly.NewBuilder(cfg.AspectRatio, logger),
		overlay:     edits.NewOverlay(),
		renderer:    renderer,
		distributor: distributor,
		logger:      logging.WithComponent(logger, "studio"),
		now:         time.Now,
		tickets:     make(map[string]uint64),
	}
}

// SetScheduler attaches the auto-assembly scheduler. Mutations report the
// eligible count to it.
func (s *Service) SetScheduler(sched *scheduler.Scheduler) {
	s.sched.Store(sched)
}

// Store exposes the transient media store for local playback.
func (s *Service) Store() *media.Store {
	return s.store
}

func (s *Service) observe(id string, eligible int) {
	if sched := s.sched.Load(); sched != nil {
		sched.Observe(id, eligible)
	}
}

// slotLocked returns the live pointer for id, loading it from the
// repository on first use. Callers hold s.mu.
func (s *Service) slotLocked(ctx context.Context, id string) (*atomic.Pointer[script.Script], bool, error) {
	if v, ok := s.scripts.Load(id); ok {
		return v.(*atomic.Pointer[script.Script]), false, nil
	}

	rec, err := s.repo.GetScript(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load script %s: %w", id, err)
	}
	if rec == nil {
		return nil, false, &script.NotFoundError{Kind: "script", ID: id}
	}
	sc, err := s.decode(rec)
	if err != nil {
		return nil, false, err
	}

	ptr := new(atomic.Pointer[script.Script])
	ptr.Store(sc)
	s.scripts.Store(id, ptr)
	return ptr, true, nil
}

func (s *Service) decode(rec *ScriptRecord) (*script.Script, error) {
	var durable script.Script
	if err := json.Unmarshal(rec.Document, &durable); err != nil {
		return nil, &script.CodecError{Field: "document", Err: err}
	}
	sc, errs := s.codec.Decode(&durable)
	if len(errs) > 0 {
		s.warnings.Store(rec.ID, errs)
		s.logger.Warn("script loaded with dropped media", "script_id", rec.ID, "dropped", len(errs))
	} else {
		s.warnings.Delete(rec.ID)
	}
	return sc, nil
}

// snapshot returns the published script. The result must not be modified.
func (s *Service) snapshot(ctx context.Context, id string) (*script.Script, error) {
	if v, ok := s.scripts.Load(id); ok {
		return v.(*atomic.Pointer[script.Script]).Load(), nil
	}

	s.mu.Lock()
	ptr, loaded, err := s.slotLocked(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sc := ptr.Load()
	if loaded {
		s.observe(id, len(script.Eligible(sc)))
	}
	return sc, nil
}

// mutate applies fn to a clone of the current script and publishes the
// result once it has been persisted. fn runs under the writer lock and must
// not block on I/O beyond the store.
func (s *Service) mutate(ctx context.Context, id string, fn func(*script.Script) error) (*script.Script, error) {
	s.mu.Lock()
	ptr, loaded, err := s.slotLocked(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cur := ptr.Load()
	before := len(script.Eligible(cur))

	next := cur.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		s.revokeUnshared(next, cur)
		if loaded {
			s.observe(id, before)
		}
		if errors.Is(err, errNoChange) {
			return cur, nil
		}
		return nil, err
	}

	next.Version = cur.Version + 1
	next.UpdatedAt = s.now().UTC()
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		s.revokeUnshared(next, cur)
		return nil, err
	}
	ptr.Store(next)
	after := len(script.Eligible(next))
	s.mu.Unlock()

	s.revokeUnshared(cur, next)
	if loaded {
		s.observe(id, before)
	}
	s.observe(id, after)
	return next, nil
}

// revokeUnshared revokes handles held by from that keep no longer uses.
func (s *Service) revokeUnshared(from, keep *script.Script) {
	kept := make(map[string]bool)
	for _, h := range codec.Handles(keep) {
		kept[h] = true
	}
	for _, h := range codec.Handles(from) {
		if !kept[h] {
			s.store.Revoke(h)
		}
	}
}

func (s *Service) persist(ctx context.Context, sc *script.Script) error {
	durable, err := s.codec.Encode(ctx, sc)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(durable)
	if err != nil {
		return fmt.Errorf("marshal script %s: %w", sc.ID, err)
	}
	rec := &ScriptRecord{
		ID:            sc.ID,
		Title:         sc.Title,
		Document:      doc,
		Version:       sc.Version,
		SegmentCount:  len(sc.Segments),
		ApprovedCount: sc.ApprovedCount(),
		CreatedAt:     sc.CreatedAt,
		UpdatedAt:     sc.UpdatedAt,
	}
	if err := s.repo.SaveScript(ctx, rec); err != nil {
		return fmt.Errorf("save script %s: %w", sc.ID, err)
	}
	return nil
}

// CreateScript stores the segments produced by splitting a narration.
func (s *Service) CreateScript(ctx context.Context, in NewScript) (*script.Script, error) {
	if len(in.Segments) == 0 {
		return nil, &script.ValidationError{Op: "create script", Reason: "at least one segment is required"}
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled"
	}

	now := s.now().UTC()
	sc := &script.Script{
		ID:          NewID(),
		Title:       title,
		AspectRatio: in.AspectRatio,
		Segments:    make([]script.Segment, 0, len(in.Segments)),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, ns := range in.Segments {
		mode := ns.Mode
		if mode == "" {
			mode = media.KindClip
		}
		if mode != media.KindClip && mode != media.KindImage {
			return nil, &script.ValidationError{Op: "create script", Reason: fmt.Sprintf("segment %d: unknown mode %q", i+1, mode)}
		}
		if ns.StartS != nil && ns.EndS != nil && *ns.EndS <= *ns.StartS {
			return nil, &script.ValidationError{Op: "create script", Reason: fmt.Sprintf("segment %d: end must be after start", i+1)}
		}
		sc.Segments = append(sc.Segments, script.Segment{
			ID:        NewID(),
			Narration: ns.Narration,
			Bullets:   ns.Bullets,
			StartS:    ns.StartS,
			EndS:      ns.EndS,
			Visual: script.Visual{
				Mode:   mode,
				Status: script.StatusPending,
				Prompt: ns.Prompt,
			},
		})
	}

	s.mu.Lock()
	if err := s.persist(ctx, sc); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ptr := new(atomic.Pointer[script.Script])
	ptr.Store(sc)
	s.scripts.Store(sc.ID, ptr)
	s.mu.Unlock()

	s.observe(sc.ID, 0)
	s.logger.Info("script created", "script_id", sc.ID, "segments", len(sc.Segments))
	return sc, nil
}

// GetScript returns the current snapshot. It must be treated as read-only.
func (s *Service) GetScript(ctx context.Context, id string) (*script.Script, error) {
	return s.snapshot(ctx, id)
}

func (s *Service) ListScripts(ctx context.Context) ([]*ScriptRecord, error) {
	return s.repo.ListScripts(ctx)
}

// Warnings returns the media fields dropped when the script was last loaded.
func (s *Service) Warnings(id string) []*script.CodecError {
	if v, ok := s.warnings.Load(id); ok {
		return v.([]*script.CodecError)
	}
	return nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	recs, err := s.repo.ListScripts(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Scripts: len(recs)}
	for _, r := range recs {
		st.Segments += r.SegmentCount
		st.ApprovedSegments += r.ApprovedCount
	}
	return st, nil
}

// DeleteScript removes a script and frees its transient media.
func (s *Service) DeleteScript(ctx context.Context, id string) error {
	s.mu.Lock()
	rec, err := s.repo.GetScript(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if rec == nil {
		s.mu.Unlock()
		return &script.NotFoundError{Kind: "script", ID: id}
	}
	if err := s.repo.DeleteScript(ctx, id); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("delete script %s: %w", id, err)
	}
	var last *script.Script
	if v, ok := s.scripts.LoadAndDelete(id); ok {
		last = v.(*atomic.Pointer[script.Script]).Load()
	}
	for key := range s.tickets {
		if strings.HasPrefix(key, id+"/") {
			delete(s.tickets, key)
		}
	}
	s.mu.Unlock()

	if sched := s.sched.Load(); sched != nil {
		sched.Forget(id)
	}
	s.overlay.Discard(id)
	s.warnings.Delete(id)
	s.codec.Release(last)
	s.logger.Info("script deleted", "script_id", id)
	return nil
}

// Save re-encodes and persists the current snapshot.
func (s *Service) Save(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr, _, err := s.slotLocked(ctx, id)
	if err != nil {
		return err
	}
	return s.persist(ctx, ptr.Load())
}

// Reload discards the live script and decodes it again from storage.
func (s *Service) Reload(ctx context.Context, id string) (*script.Script, error) {
	s.mu.Lock()
	var old *script.Script
	if v, ok := s.scripts.LoadAndDelete(id); ok {
		old = v.(*atomic.Pointer[script.Script]).Load()
	}
	ptr, _, err := s.slotLocked(ctx, id)
	s.mu.Unlock()

	s.codec.Release(old)
	if err != nil {
		return nil, err
	}
	sc := ptr.Load()
	s.observe(id, len(script.Eligible(sc)))
	return sc, nil
}

// Document returns the durable JSON form of a script.
func (s *Service) Document(ctx context.Context, id string) ([]byte, error) {
	sc, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	durable, err := s.codec.Encode(ctx, sc)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(durable, "", "  ")
}

// ref turns provider or upload media into a reference. Inline payloads also
// get a transient handle for local playback.
func (s *Service) ref(in *MediaInput) (media.Ref, error) {
	switch {
	case len(in.Bytes) > 0:
		mime := in.Mime
		if mime == "" {
			mime = http.DetectContentType(in.Bytes)
		}
		return media.Ref{Handle: s.store.Register(in.Bytes, mime)}, nil
	case in.Data != "":
		mime, data, err := media.DecodeDataURI(in.Data)
		if err != nil {
			return media.Ref{}, &script.ValidationError{Op: "media", Reason: err.Error()}
		}
		return media.Ref{Data: in.Data, Handle: s.store.Register(data, mime)}, nil
	default:
		return media.Ref{URL: in.URL}, nil
	}
}

// inline fills Data from a transient handle so the reference survives a
// reload and can be sent to the renderer.
func (s *Service) inline(r *media.Ref) {
	if r.Data != "" || r.Handle == "" {
		return
	}
	uri, err := s.store.Inline(r.Handle)
	if err != nil {
		s.logger.Warn("transient media unavailable", "handle", r.Handle, "error", err)
		return
	}
	r.Data = uri
}

func (s *Service) onSegment(ctx context.Context, id, sid string, fn func(*script.Segment) error) (*script.Script, error) {
	return s.mutate(ctx, id, func(sc *script.Script) error {
		seg, err := sc.Segment(sid)
		if err != nil {
			return err
		}
		return fn(seg)
	})
}

// UpdateVisual lands a generation or search result. The visual moves to
// completed; an approved visual must be regenerated first.
func (s *Service) UpdateVisual(ctx context.Context, id, sid string, u VisualUpdate) (*script.Script, error) {
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		if seg.Visual.Status == script.StatusApproved {
			return &script.ValidationError{Op: "visual " + sid, Reason: "visual is approved, regenerate it first"}
		}
		if u.Mode != "" {
			if u.Mode != media.KindClip && u.Mode != media.KindImage {
				return &script.ValidationError{Op: "visual " + sid, Reason: fmt.Sprintf("unknown mode %q", u.Mode)}
			}
			seg.Visual.Mode = u.Mode
		}
		for _, f := range []struct {
			in  *MediaInput
			dst *media.Ref
		}{
			{u.Media, &seg.Visual.Media},
			{u.Image, &seg.Visual.Image},
			{u.Thumbnail, &seg.Visual.Thumbnail},
		} {
			if f.in.empty() {
				continue
			}
			r, err := s.ref(f.in)
			if err != nil {
				return err
			}
			*f.dst = r
		}
		if u.Prompt != nil {
			seg.Visual.Prompt = *u.Prompt
		}
		if u.License != nil {
			l := *u.License
			seg.Visual.License = &l
		}
		if seg.Visual.Media.IsZero() && seg.Visual.Image.IsZero() {
			return &script.ValidationError{Op: "visual " + sid, Reason: "result carries no media"}
		}

		path, ok := script.PathTo(seg.Visual.Status, script.StatusCompleted)
		if !ok {
			return &script.ValidationError{Op: "visual " + sid, Reason: fmt.Sprintf("cannot complete from %s", seg.Visual.Status)}
		}
		for _, st := range path {
			if err := seg.SetVisualStatus(st); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetVisualStatus performs a single channel transition, e.g. generating or
// failed while a provider call is running.
func (s *Service) SetVisualStatus(ctx context.Context, id, sid string, to script.Status) (*script.Script, error) {
	if !script.ValidStatus(to) {
		return nil, &script.ValidationError{Op: "visual " + sid, Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if to == script.StatusApproved {
		return s.ApproveVisual(ctx, id, sid)
	}
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		return seg.SetVisualStatus(to)
	})
}

func (s *Service) ApproveVisual(ctx context.Context, id, sid string) (*script.Script, error) {
	sc, err := s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		if seg.Visual.Status == script.StatusCompleted {
			s.inline(&seg.Visual.Media)
			s.inline(&seg.Visual.Image)
		}
		return seg.ApproveVisual()
	})
	s.logApproval(id, sid, "visual", err)
	return sc, err
}

func (s *Service) logApproval(id, sid, channel string, err error) {
	logger := logging.WithSegmentID(s.logger, id, sid)
	switch {
	case err == nil:
		logger.Debug("approved", "channel", channel)
	case script.ErrorKind(err) == script.KindValidation:
		logger.Info("approval refused", "channel", channel, "reason", err)
	}
}

func (s *Service) RejectVisual(ctx context.Context, id, sid string) (*script.Script, error) {
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		return seg.RejectVisual()
	})
}

func (s *Service) RegenerateVisual(ctx context.Context, id, sid string) (*script.Script, error) {
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		return seg.RegenerateVisual()
	})
}

// UpdateAudio lands synthesized or uploaded narration. The segment gains an
// audio channel if it had none.
func (s *Service) UpdateAudio(ctx context.Context, id, sid string, u AudioUpdate) (*script.Script, error) {
	if u.Media.empty() {
		return nil, &script.ValidationError{Op: "audio " + sid, Reason: "result carries no media"}
	}
	if u.DurationS < 0 {
		return nil, &script.ValidationError{Op: "audio " + sid, Reason: "duration must not be negative"}
	}
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		if seg.Audio == nil {
			seg.Audio = &script.Audio{Status: script.StatusPending}
		}
		if seg.Audio.Status == script.StatusApproved {
			return &script.ValidationError{Op: "audio " + sid, Reason: "audio is approved, regenerate it first"}
		}
		r, err := s.ref(u.Media)
		if err != nil {
			return err
		}
		seg.Audio.Media = r
		seg.Audio.DurationS = u.DurationS
		seg.Audio.Custom = u.Custom
		seg.Audio.VoiceID = u.VoiceID

		path, ok := script.PathTo(seg.Audio.Status, script.StatusCompleted)
		if !ok {
			return &script.ValidationError{Op: "audio " + sid, Reason: fmt.Sprintf("cannot complete from %s", seg.Audio.Status)}
		}
		for _, st := range path {
			if err := seg.SetAudioStatus(st); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) SetAudioStatus(ctx context.Context, id, sid string, to script.Status) (*script.Script, error) {
	if !script.ValidStatus(to) {
		return nil, &script.ValidationError{Op: "audio " + sid, Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if to == script.StatusApproved {
		return s.ApproveAudio(ctx, id, sid)
	}
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		return seg.SetAudioStatus(to)
	})
}

func (s *Service) ApproveAudio(ctx context.Context, id, sid string) (*script.Script, error) {
	sc, err := s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		if seg.Audio != nil && seg.Audio.Status == script.StatusCompleted {
			s.inline(&seg.Audio.Media)
		}
		return seg.ApproveAudio()
	})
	s.logApproval(id, sid, "audio", err)
	return sc, err
}

func (s *Service) RejectAudio(ctx context.Context, id, sid string) (*script.Script, error) {
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		return seg.RejectAudio()
	})
}

func (s *Service) RegenerateAudio(ctx context.Context, id, sid string) (*script.Script, error) {
	return s.onSegment(ctx, id, sid, func(seg *script.Segment) error {
		return seg.RegenerateAudio()
	})
}

// SetScore replaces the background score. A new score starts unapproved.
func (s *Service) SetScore(ctx context.Context, id string, u ScoreUpdate) (*script.Script, error) {
	switch {
	case u.Media.empty():
		return nil, &script.ValidationError{Op: "score", Reason: "score carries no media"}
	case u.Volume < 0 || u.Volume > 1:
		return nil, &script.ValidationError{Op: "score", Reason: "volume must be between 0 and 1"}
	case u.TrimStartS < 0:
		return nil, &script.ValidationError{Op: "score", Reason: "trim start must not be negative"}
	case u.TrimEndS != nil && *u.TrimEndS <= u.TrimStartS:
		return nil, &script.ValidationError{Op: "score", Reason: "trim end must be after trim start"}
	}
	provenance := u.Provenance
	if provenance == "" {
		provenance = script.ProvenanceGenerated
	}

	return s.mutate(ctx, id, func(sc *script.Script) error {
		r, err := s.ref(u.Media)
		if err != nil {
			return err
		}
		score := &script.BackgroundScore{
			Media:      r,
			Volume:     u.Volume,
			TrimStartS: u.TrimStartS,
			Provenance: provenance,
		}
		if u.TrimEndS != nil {
			v := *u.TrimEndS
			score.TrimEndS = &v
		}
		if u.License != nil {
			l := *u.License
			score.License = &l
		}
		sc.Score = score
		return nil
	})
}

func (s *Service) ApproveScore(ctx context.Context, id string) (*script.Script, error) {
	return s.mutate(ctx, id, func(sc *script.Script) error {
		if sc.Score == nil {
			return &script.ValidationError{Op: "approve score", Reason: "script has no background score"}
		}
		if sc.Score.Approved {
			return errNoChange
		}
		s.inline(&sc.Score.Media)
		if _, ok := sc.Score.Resolve(); !ok {
			return &script.ValidationError{Op: "approve score", Reason: "no playable source to approve"}
		}
		sc.Score.Approved = true
		return nil
	})
}

func (s *Service) ClearScore(ctx context.Context, id string) (*script.Script, error) {
	return s.mutate(ctx, id, func(sc *script.Script) error {
		if sc.Score == nil {
			return errNoChange
		}
		sc.Score = nil
		return nil
	})
}

var captionPositions = map[string]bool{"top": true, "center": true, "bottom": true}

func validateEdit(sid string, e script.Edit) error {
	op := "edit " + sid
	if c := e.Crop; c != nil {
		if c.StartS < 0 {
			return &script.ValidationError{Op: op, Reason: "crop start must not be negative"}
		}
		if c.EndS != nil && *c.EndS <= c.StartS {
			return &script.ValidationError{Op: op, Reason: "crop end must be after crop start"}
		}
	}
	if e.Transition != nil && strings.TrimSpace(*e.Transition) == "" {
		return &script.ValidationError{Op: op, Reason: "transition must not be empty"}
	}
	if e.CaptionPosition != nil && !captionPositions[*e.CaptionPosition] {
		return &script.ValidationError{Op: op, Reason: fmt.Sprintf("unknown caption position %q", *e.CaptionPosition)}
	}
	if e.CaptionSize != nil && *e.CaptionSize <= 0 {
		return &script.ValidationError{Op: op, Reason: "caption size must be positive"}
	}
	if e.CaptionZoom != nil && *e.CaptionZoom <= 0 {
		return &script.ValidationError{Op: op, Reason: "caption zoom must be positive"}
	}
	return nil
}

// EditSegment stages a pending edit and returns the effective edit. Pending
// edits do not change the script until committed.
func (s *Service) EditSegment(ctx context.Context, id, sid string, patch script.Edit) (script.Edit, error) {
	sc, err := s.snapshot(ctx, id)
	if err != nil {
		return script.Edit{}, err
	}
	if sc.FindSegment(sid) < 0 {
		return script.Edit{}, &script.NotFoundError{Kind: "segment", ID: sid}
	}
	if err := validateEdit(sid, patch); err != nil {
		return script.Edit{}, err
	}
	s.overlay.Stage(id, sid, patch)
	return s.overlay.Effective(sc, sid), nil
}

func (s *Service) EffectiveEdit(ctx context.Context, id, sid string) (script.Edit, error) {
	sc, err := s.snapshot(ctx, id)
	if err != nil {
		return script.Edit{}, err
	}
	if sc.FindSegment(sid) < 0 {
		return script.Edit{}, &script.NotFoundError{Kind: "segment", ID: sid}
	}
	return s.overlay.Effective(sc, sid), nil
}

// DirtySegments lists segments with uncommitted edits.
func (s *Service) DirtySegments(ctx context.Context, id string) ([]string, error) {
	sc, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.overlay.Dirty(sc), nil
}

// CommitEdits folds pending edits into the script. With no segment ids every
// pending edit is committed. Committing twice is a no-op.
func (s *Service) CommitEdits(ctx context.Context, id string, sids ...string) (*script.Script, error) {
	var applied map[string]script.Edit
	sc, err := s.mutate(ctx, id, func(sc *script.Script) error {
		before := make(map[string]script.Edit, len(sc.Edits))
		for k, e := range sc.Edits {
			before[k] = e.Clone()
		}
		applied = s.overlay.CommitInto(sc, sids...)
		if reflect.DeepEqual(before, sc.Edits) || (len(before) == 0 && len(sc.Edits) == 0) {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.overlay.Settle(id, applied)
	return sc, nil
}

func (s *Service) DiscardEdits(ctx context.Context, id string, sids ...string) error {
	if _, err := s.snapshot(ctx, id); err != nil {
		return err
	}
	s.overlay.Discard(id, sids...)
	return nil
}

// Eligibility reports which segments the next assembly would include.
func (s *Service) Eligibility(ctx context.Context, id string) ([]script.Candidate, []script.Exclusion, error) {
	sc, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	eligible, excluded := script.Eligibility(sc)
	return eligible, excluded, nil
}

// BuildRequest commits pending edits and builds the render request.
func (s *Service) BuildRequest(ctx context.Context, id string) (*assembly.Request, error) {
	sc, err := s.CommitEdits(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(sc, nil)
}
