package export

import (
	"strings"
	"testing"

	"github.com/heimdex/heimdex-studio/internal/assembly"
	"github.com/heimdex/heimdex-studio/internal/media"
)

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []Clip{{
		Name:      "Intro",
		MediaPath: "https://cdn.example.com/intro.mp4",
		StartMs:   0,
		EndMs:     2000,
	}}

	edl := GenerateEDL(clips, "Project One", 30.0)

	if !strings.Contains(edl, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Intro") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  https://cdn.example.com/intro.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
}

func TestGenerateEDL_RecordOffsetsAccumulate(t *testing.T) {
	clips := []Clip{
		{Name: "Clip A", MediaPath: "a", StartMs: 0, EndMs: 1000},
		{Name: "Clip B", MediaPath: "b", StartMs: 1000, EndMs: 2500},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:02:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	clips := []Clip{{Name: "Clip", MediaPath: "x", StartMs: 0, EndMs: 1000}}
	edl := GenerateEDL(clips, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestGenerateEDL_MultilineCaption(t *testing.T) {
	clips := []Clip{{Name: "line one\nline two", MediaPath: "x", EndMs: 1000}}
	edl := GenerateEDL(clips, "Caption", 30)

	if !strings.Contains(edl, "* FROM CLIP NAME:  line one line two") {
		t.Fatalf("caption not flattened: %q", edl)
	}
}

func TestTimecode(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		fps  int
		want string
	}{
		{name: "zero", ms: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", ms: 1000, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", ms: 500, fps: 30, want: "00:00:00:15"},
		{name: "one minute", ms: 60000, fps: 30, want: "00:01:00:00"},
		{name: "one hour", ms: 3600000, fps: 30, want: "01:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := timecode(tc.ms, tc.fps); got != tc.want {
				t.Fatalf("timecode(%d, %d) = %q, want %q", tc.ms, tc.fps, got, tc.want)
			}
		})
	}
}

func TestTimelineClips(t *testing.T) {
	end := 3.0
	req := &assembly.Request{
		Segments: []assembly.SegmentDescriptor{
			{SegmentID: "A", Visual: media.Source{Data: "data:video/mp4;base64,AA=="}, Caption: assembly.Caption{Text: "first"}},
			{SegmentID: "B", Visual: media.Source{URL: "https://cdn.example.com/b.mp4"}, AudioDurationS: 4.25},
			{SegmentID: "C", Visual: media.Source{URL: "https://cdn.example.com/c.mp4"}, Crop: assembly.Crop{StartS: 1, EndS: &end}},
		},
	}

	clips := TimelineClips(req)
	if len(clips) != 3 {
		t.Fatalf("clips = %d, want 3", len(clips))
	}
	if clips[0].MediaPath != "inline://A" || clips[0].EndMs != DefaultSegmentMs || clips[0].Name != "first" {
		t.Errorf("clip A = %+v", clips[0])
	}
	if clips[1].EndMs != 4250 || clips[1].Name != "Segment 2" {
		t.Errorf("clip B = %+v", clips[1])
	}
	if clips[2].StartMs != 1000 || clips[2].EndMs != 3000 {
		t.Errorf("clip C = %+v", clips[2])
	}
}
