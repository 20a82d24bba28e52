package script

// Clone returns a deep copy of s. Mutators work on the clone and publish it.
func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	out := *s

	out.Segments = make([]Segment, len(s.Segments))
	for i, seg := range s.Segments {
		out.Segments[i] = seg.clone()
	}

	if s.Score != nil {
		score := *s.Score
		score.TrimEndS = cloneFloat(s.Score.TrimEndS)
		score.License = cloneLicense(s.Score.License)
		out.Score = &score
	}

	if s.Edits != nil {
		out.Edits = make(map[string]Edit, len(s.Edits))
		for id, e := range s.Edits {
			out.Edits[id] = e.Clone()
		}
	}

	out.Artifact = cloneArtifact(s.Artifact)
	out.Preview = cloneArtifact(s.Preview)
	return &out
}

func cloneArtifact(a *Artifact) *Artifact {
	if a == nil {
		return nil
	}
	out := *a
	if a.ExportedAt != nil {
		t := *a.ExportedAt
		out.ExportedAt = &t
	}
	return &out
}

func (seg Segment) clone() Segment {
	out := seg
	out.Bullets = cloneStrings(seg.Bullets)
	out.StartS = cloneFloat(seg.StartS)
	out.EndS = cloneFloat(seg.EndS)
	out.Visual.License = cloneLicense(seg.Visual.License)
	if seg.Audio != nil {
		a := *seg.Audio
		out.Audio = &a
	}
	return out
}

// Clone returns a deep copy of e.
func (e Edit) Clone() Edit {
	out := Edit{
		Transition:      cloneString(e.Transition),
		CaptionText:     cloneString(e.CaptionText),
		CaptionPosition: cloneString(e.CaptionPosition),
		CaptionSize:     cloneFloat(e.CaptionSize),
		CaptionZoom:     cloneFloat(e.CaptionZoom),
		Bullets:         cloneStrings(e.Bullets),
	}
	if e.Crop != nil {
		out.Crop = &Crop{StartS: e.Crop.StartS, EndS: cloneFloat(e.Crop.EndS)}
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneLicense(l *License) *License {
	if l == nil {
		return nil
	}
	v := *l
	return &v
}
