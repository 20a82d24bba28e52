// Package export releases an assembled video once it has been approved, and
// derives download names and edit-decision-list sidecars for it.
package export

import (
	"fmt"
	"time"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

// Download is a file handed to the user.
type Download struct {
	Filename string
	Mime     string
	Data     []byte
}

// Approve moves an assembled artifact to approved. Approving an already
// approved or exported artifact is a no-op.
func Approve(a *script.Artifact) error {
	if a == nil {
		return &script.ValidationError{Op: "approve artifact", Reason: "nothing has been assembled"}
	}
	switch a.State {
	case script.ArtifactApproved, script.ArtifactExported:
		return nil
	case script.ArtifactAssembled:
	default:
		return &script.ValidationError{Op: "approve artifact", Reason: fmt.Sprintf("artifact is %s, not assembled", a.State)}
	}
	if !a.Durable() {
		return &script.ValidationError{Op: "approve artifact", Reason: "artifact has no durable payload"}
	}
	a.State = script.ArtifactApproved
	return nil
}

// Export releases the payload of an approved artifact and marks it exported.
// Exporting again returns the same payload under the same name without
// re-rendering.
func Export(a *script.Artifact, title string, now time.Time) (*Download, error) {
	if a == nil {
		return nil, &script.ValidationError{Op: "export", Reason: "nothing has been assembled"}
	}
	if a.State != script.ArtifactApproved && a.State != script.ArtifactExported {
		return nil, &script.ValidationError{Op: "export", Reason: fmt.Sprintf("artifact is %s, approve it first", a.State)}
	}
	if !a.Durable() {
		return nil, &script.ValidationError{Op: "export", Reason: "artifact has no durable payload"}
	}

	mime, data, err := media.DecodeDataURI(a.Media.Data)
	if err != nil {
		return nil, &script.CodecError{Field: "artifact.media", Err: err}
	}
	if a.Mime != "" {
		mime = a.Mime
	}

	if a.ExportedAt == nil {
		t := now.UTC()
		a.ExportedAt = &t
	}
	a.State = script.ArtifactExported

	return &Download{
		Filename: Filename(title, mime, *a.ExportedAt),
		Mime:     mime,
		Data:     data,
	}, nil
}
