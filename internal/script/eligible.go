package script

import "github.com/heimdex/heimdex-studio/internal/media"

// Candidate is a segment that will be included in assembly, with its
// resolved sources.
type Candidate struct {
	SegmentID string
	Visual    media.Source
	Kind      media.Kind
	Audio     *media.Source
}

// Exclusion explains why a segment was left out.
type Exclusion struct {
	SegmentID string
	Reason    string
}

const (
	ReasonNotApproved   = "not approved"
	ReasonMissingSource = "missing source"
)

// Eligibility returns the segments eligible for assembly in narrative order.
// A segment is eligible when its visual is approved and resolvable. Narration
// is attached whenever it resolves, whatever its approval status. Pending
// edits are never consulted.
func Eligibility(s *Script) ([]Candidate, []Exclusion) {
	if s == nil {
		return nil, nil
	}
	var eligible []Candidate
	var excluded []Exclusion

	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Visual.Status != StatusApproved {
			excluded = append(excluded, Exclusion{SegmentID: seg.ID, Reason: ReasonNotApproved})
			continue
		}
		src, kind, ok := seg.Visual.Resolve()
		if !ok {
			excluded = append(excluded, Exclusion{SegmentID: seg.ID, Reason: ReasonMissingSource})
			continue
		}

		c := Candidate{SegmentID: seg.ID, Visual: src, Kind: kind}
		if seg.Audio != nil {
			if audio, ok := seg.Audio.Resolve(); ok {
				c.Audio = &audio
			}
		}
		eligible = append(eligible, c)
	}
	return eligible, excluded
}

// Eligible returns the ids of eligible segments in narrative order.
func Eligible(s *Script) []string {
	cands, _ := Eligibility(s)
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.SegmentID
	}
	return ids
}
