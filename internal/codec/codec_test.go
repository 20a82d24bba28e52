package codec

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

func liveScript(store *media.Store) *script.Script {
	clip := store.Register([]byte("clip-bytes"), "video/mp4")
	voice := store.Register([]byte("voice-bytes"), "audio/mpeg")

	return &script.Script{
		ID: "s1",
		Segments: []script.Segment{
			{
				ID: "A", Narration: "one", Approved: true,
				Visual: script.Visual{Mode: media.KindClip, Status: script.StatusApproved,
					Media: media.Ref{Handle: clip, Data: media.EncodeDataURI("video/mp4", []byte("clip-bytes"))}},
			},
			{
				ID: "B", Narration: "two",
				Visual: script.Visual{Mode: media.KindClip, Status: script.StatusCompleted,
					Media: media.Ref{URL: "blob:http://localhost/abc"},
					Image: media.Ref{URL: "https://cdn.example.com/b.png"}},
				Audio: &script.Audio{Status: script.StatusCompleted, Media: media.Ref{Handle: voice}},
			},
			{
				ID: "C", Narration: "three", Approved: true,
				Visual: script.Visual{Mode: media.KindClip, Status: script.StatusApproved,
					Media: media.Ref{URL: "https://cdn.example.com/c.mp4"}},
			},
		},
		Edits: map[string]script.Edit{"C": {Transition: strPtr("cut")}},
	}
}

func TestEncode_InlinesHandlesAndDropsLocalRefs(t *testing.T) {
	store := media.NewStore(nil)
	c := New(store, testLogger())
	s := liveScript(store)

	durable, err := c.Encode(context.Background(), s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	for _, seg := range durable.Segments {
		if seg.Visual.Media.Handle != "" {
			t.Errorf("segment %s kept a transient handle", seg.ID)
		}
	}

	b := durable.Segments[1]
	if b.Visual.Media.URL != "" {
		t.Errorf("B local url kept: %q", b.Visual.Media.URL)
	}
	if b.Visual.Image.URL != "https://cdn.example.com/b.png" {
		t.Errorf("B image url = %q, want passthrough", b.Visual.Image.URL)
	}
	mime, data, err := media.DecodeDataURI(b.Audio.Media.Data)
	if err != nil || mime != "audio/mpeg" || string(data) != "voice-bytes" {
		t.Errorf("B audio inline = %q %q %v", mime, data, err)
	}

	if durable.Segments[2].Visual.Media.URL != "https://cdn.example.com/c.mp4" {
		t.Error("fetchable url not passed through")
	}
	if s.Segments[1].Audio.Media.Handle == "" {
		t.Error("Encode mutated its input")
	}
}

func TestEncode_UnreadableHandleDropped(t *testing.T) {
	store := media.NewStore(nil)
	c := New(store, testLogger())
	s := liveScript(store)
	store.Revoke(s.Segments[1].Audio.Media.Handle)

	durable, err := c.Encode(context.Background(), s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !durable.Segments[1].Audio.Media.IsZero() {
		t.Errorf("revoked handle not dropped: %+v", durable.Segments[1].Audio.Media)
	}
}

func TestEncode_DropsPreviewArtifact(t *testing.T) {
	store := media.NewStore(nil)
	c := New(store, testLogger())
	s := liveScript(store)
	s.Artifact = &script.Artifact{
		State: script.ArtifactPreviewed,
		Media: media.Ref{Handle: store.Register([]byte("preview"), "video/mp4")},
	}
	s.Preview = &script.Artifact{
		State: script.ArtifactPreviewed,
		Media: media.Ref{Handle: store.Register([]byte("preview 2"), "video/mp4")},
	}

	durable, err := c.Encode(context.Background(), s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if durable.Artifact != nil || durable.Preview != nil {
		t.Error("previewed artifact should not be persisted")
	}
}

func TestRoundTrip_PreservesApprovalsEditsAndMedia(t *testing.T) {
	store := media.NewStore(nil)
	c := New(store, testLogger())
	s := liveScript(store)

	durable, err := c.Encode(context.Background(), s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	loaded, errs := c.Decode(durable)
	if len(errs) != 0 {
		t.Fatalf("Decode() errors = %v", errs)
	}

	for i, seg := range loaded.Segments {
		orig := s.Segments[i]
		if seg.Approved != orig.Approved || seg.Visual.Status != orig.Visual.Status {
			t.Errorf("segment %s approval changed: %v/%s -> %v/%s", seg.ID, orig.Approved, orig.Visual.Status, seg.Approved, seg.Visual.Status)
		}
		origSrc, _, origOK := orig.Visual.Resolve()
		gotSrc, _, gotOK := seg.Visual.Resolve()
		if origOK != gotOK || origSrc != gotSrc {
			t.Errorf("segment %s resolvable media changed: %+v -> %+v", seg.ID, origSrc, gotSrc)
		}
	}
	if !reflect.DeepEqual(loaded.Edits, s.Edits) {
		t.Errorf("edits = %+v, want %+v", loaded.Edits, s.Edits)
	}

	h := loaded.Segments[0].Visual.Media.Handle
	if h == "" || h == s.Segments[0].Visual.Media.Handle {
		t.Errorf("decode should mint a fresh handle, got %q", h)
	}
	if data, _, err := store.Read(h); err != nil || string(data) != "clip-bytes" {
		t.Errorf("fresh handle read = %q, %v", data, err)
	}
}

func TestDecode_MalformedPayload(t *testing.T) {
	store := media.NewStore(nil)
	c := New(store, testLogger())

	durable := &script.Script{
		ID: "s1",
		Segments: []script.Segment{
			{
				ID: "A", Approved: true,
				Visual: script.Visual{Mode: media.KindClip, Status: script.StatusApproved,
					Media:     media.Ref{Data: "data:video/mp4;base64,!!!"},
					Thumbnail: media.Ref{Data: "not-a-data-uri"}},
			},
			{
				ID: "B", Approved: true,
				Visual: script.Visual{Mode: media.KindClip, Status: script.StatusApproved,
					Media: media.Ref{Data: media.EncodeDataURI("video/mp4", []byte("ok"))}},
			},
		},
	}

	loaded, errs := c.Decode(durable)
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want one for segment A", len(errs))
	}
	e := errs[0]
	if e.SegmentID != "A" || script.ErrorKind(e) != script.KindCodec {
		t.Errorf("unexpected codec error %v", e)
	}
	if e.Field != "visual.media,visual.thumbnail" {
		t.Errorf("field = %q, want both dropped fields", e.Field)
	}

	a := loaded.Segments[0]
	if a.Visual.Media.Data != "" || a.Visual.Thumbnail.Data != "" {
		t.Error("malformed fields not dropped")
	}
	if a.Approved || a.Visual.Status != script.StatusFailed {
		t.Errorf("A approved = %v status = %s, want demoted to failed", a.Approved, a.Visual.Status)
	}

	b := loaded.Segments[1]
	if !b.Approved || b.Visual.Media.Handle == "" {
		t.Error("B should load unaffected")
	}
}

func TestDecode_ScriptLevelWarningsKeptApart(t *testing.T) {
	c := New(media.NewStore(nil), testLogger())

	durable := &script.Script{
		ID: "s1",
		Segments: []script.Segment{
			{ID: "A", Visual: script.Visual{Mode: media.KindClip, Status: script.StatusCompleted,
				Media: media.Ref{Data: "data:video/mp4;base64,!!!"}}},
		},
		Score: &script.BackgroundScore{Media: media.Ref{Data: "garbage"}, Volume: 0.5},
		Artifact: &script.Artifact{State: script.ArtifactAssembled,
			Media: media.Ref{Data: "data:video/mp4;base64,@@@"}},
	}

	_, errs := c.Decode(durable)
	if len(errs) != 3 {
		t.Fatalf("errors = %v, want segment A, score and artifact", errs)
	}
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.SegmentID
	}
	if id, ok := fields["visual.media"]; !ok || id != "A" {
		t.Errorf("segment warning missing: %v", fields)
	}
	for _, f := range []string{"score.media", "artifact.media"} {
		if id, ok := fields[f]; !ok || id != "" {
			t.Errorf("script-level warning %s missing: %v", f, fields)
		}
	}
}

func TestRelease(t *testing.T) {
	store := media.NewStore(nil)
	c := New(store, testLogger())
	s := liveScript(store)

	c.Release(s)
	if store.Len() != 0 {
		t.Errorf("store retains %d entries after release", store.Len())
	}
}
