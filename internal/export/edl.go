package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/heimdex/heimdex-studio/internal/assembly"
)

// DefaultSegmentMs is used for segments whose length is known neither from a
// crop window nor from narration.
const DefaultSegmentMs = 5000

// Clip is one event on the assembled timeline.
type Clip struct {
	Name      string
	MediaPath string
	StartMs   int
	EndMs     int
}

// TimelineClips lays the request's segments end to end. Inline payloads have
// no path and are named by segment.
func TimelineClips(req *assembly.Request) []Clip {
	clips := make([]Clip, 0, len(req.Segments))
	for i, d := range req.Segments {
		startMs := int(math.Round(d.Crop.StartS * 1000))
		var endMs int
		switch {
		case d.Crop.EndS != nil:
			endMs = int(math.Round(*d.Crop.EndS * 1000))
		case d.AudioDurationS > 0:
			endMs = startMs + int(math.Round(d.AudioDurationS*1000))
		default:
			endMs = startMs + DefaultSegmentMs
		}
		if endMs <= startMs {
			endMs = startMs + DefaultSegmentMs
		}

		path := d.Visual.URL
		if path == "" {
			path = "inline://" + d.SegmentID
		}
		name := d.Caption.Text
		if name == "" {
			name = fmt.Sprintf("Segment %d", i+1)
		}
		clips = append(clips, Clip{Name: name, MediaPath: path, StartMs: startMs, EndMs: endMs})
	}
	return clips
}

// GenerateEDL writes a CMX3600-style edit decision list for clips.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame(frameRate) {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordMs := 0
	for i, clip := range clips {
		durationMs := clip.EndMs - clip.StartMs
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s",
				i+1, "AX", "V",
				timecode(clip.StartMs, fps), timecode(clip.EndMs, fps),
				timecode(recordMs, fps), timecode(recordMs+durationMs, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", oneLine(clip.Name)),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath),
		)
		recordMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func isDropFrame(frameRate float64) bool {
	return math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func timecode(ms int, fps int) string {
	frames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	seconds := frames / fps
	minutes := seconds / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", minutes/60, minutes%60, seconds%60, frames%fps)
}
