package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

func assembled() *script.Artifact {
	return &script.Artifact{
		Media:     media.Ref{Data: media.EncodeDataURI("video/mp4", []byte("final cut"))},
		Mime:      "video/mp4",
		DurationS: 30,
		State:     script.ArtifactAssembled,
	}
}

func TestApprove(t *testing.T) {
	a := assembled()
	if err := Approve(a); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if a.State != script.ArtifactApproved {
		t.Fatalf("state = %s, want approved", a.State)
	}
	if err := Approve(a); err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}
}

func TestApprove_Rejects(t *testing.T) {
	tests := []struct {
		name string
		a    *script.Artifact
	}{
		{name: "nil", a: nil},
		{name: "preview", a: &script.Artifact{Media: media.Ref{Handle: "blob:studio/x"}, State: script.ArtifactPreviewed}},
		{name: "handle only", a: &script.Artifact{Media: media.Ref{Handle: "blob:studio/x"}, State: script.ArtifactAssembled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Approve(tt.a)
			if script.ErrorKind(err) != script.KindValidation {
				t.Fatalf("Approve() error = %v, want validation error", err)
			}
		})
	}
}

func TestExport_RequiresApproval(t *testing.T) {
	a := assembled()
	_, err := Export(a, "Report", time.Now())
	if script.ErrorKind(err) != script.KindValidation {
		t.Fatalf("Export() error = %v, want validation error", err)
	}
	if a.State != script.ArtifactAssembled {
		t.Fatalf("state changed to %s", a.State)
	}
}

func TestExport_RepeatIsIdentical(t *testing.T) {
	a := assembled()
	if err := Approve(a); err != nil {
		t.Fatal(err)
	}

	first, err := Export(a, "quarterly report", time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	second, err := Export(a, "quarterly report", time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second Export() error = %v", err)
	}

	if a.State != script.ArtifactExported {
		t.Errorf("state = %s, want exported", a.State)
	}
	if first.Filename != "Quarterly Report 2026-10-18.mp4" {
		t.Errorf("filename = %q", first.Filename)
	}
	if first.Filename != second.Filename || !bytes.Equal(first.Data, second.Data) {
		t.Errorf("downloads differ: %q vs %q", first.Filename, second.Filename)
	}
	if string(first.Data) != "final cut" || first.Mime != "video/mp4" {
		t.Errorf("download = %q %q", first.Data, first.Mime)
	}
}
