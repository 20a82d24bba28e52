package media

import (
	"net/url"
	"path"
	"strings"
)

// Visual is the subset of a segment visual the resolver needs.
type Visual struct {
	Mode  Kind
	Media Ref
	Image Ref
}

// ResolveVisual picks the one source the renderer receives for a visual.
//
// Order: inline payload, fetchable URL, a video-looking image reference
// promoted into the video slot, then extension and path substitution on the
// image reference. Image-mode visuals use their image reference as primary
// media. ok is false when nothing transmittable exists; callers must exclude
// the segment rather than invent a placeholder.
func ResolveVisual(v Visual) (Source, Kind, bool) {
	if v.Mode == KindImage {
		if src, ok := direct(v.Media); ok {
			return src, kindOf(src), true
		}
		if src, ok := direct(v.Image); ok {
			return src, KindImage, true
		}
		return Source{}, "", false
	}

	if src, ok := direct(v.Media); ok {
		return src, KindClip, true
	}

	if v.Image.Data != "" && LooksLikeVideo(v.Image.Data) {
		return Source{Data: v.Image.Data}, KindClip, true
	}
	if IsFetchable(v.Image.URL) && LooksLikeVideo(v.Image.URL) {
		return Source{URL: v.Image.URL}, KindClip, true
	}

	for _, candidate := range VideoCandidates(v.Image.URL) {
		if LooksLikeVideo(candidate) {
			return Source{URL: candidate}, KindClip, true
		}
	}
	return Source{}, "", false
}

// ResolveAudio resolves narration or score audio. A transient handle is only
// for local playback and never resolves.
func ResolveAudio(r Ref) (Source, bool) {
	return direct(r)
}

func direct(r Ref) (Source, bool) {
	if r.Data != "" {
		return Source{Data: r.Data}, true
	}
	if IsFetchable(r.URL) {
		return Source{URL: r.URL}, true
	}
	return Source{}, false
}

func kindOf(src Source) Kind {
	if LooksLikeVideo(src.Data) || LooksLikeVideo(src.URL) {
		return KindClip
	}
	return KindImage
}

// VideoCandidates derives likely video locations from an image URL. Candidates
// are ordered: directory and extension swapped, extension swapped, directory
// swapped. Only fetchable URLs produce candidates.
func VideoCandidates(imageURL string) []string {
	if !IsFetchable(imageURL) {
		return nil
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil
	}

	ext := path.Ext(u.Path)
	extSwapped := ""
	if imageExtensions[strings.ToLower(ext)] {
		extSwapped = strings.TrimSuffix(u.Path, ext) + ".mp4"
	}
	dirSwapped, hasDir := swapImageDir(u.Path)

	var paths []string
	if extSwapped != "" && hasDir {
		both, _ := swapImageDir(extSwapped)
		paths = append(paths, both)
	}
	if extSwapped != "" {
		paths = append(paths, extSwapped)
	}
	if hasDir {
		paths = append(paths, dirSwapped)
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		c := *u
		c.Path = p
		c.RawPath = ""
		out = append(out, c.String())
	}
	return out
}

func swapImageDir(p string) (string, bool) {
	segs := strings.Split(p, "/")
	swapped := false
	for i, seg := range segs {
		switch seg {
		case "image":
			segs[i] = "video"
			swapped = true
		case "images":
			segs[i] = "videos"
			swapped = true
		case "Images":
			segs[i] = "Videos"
			swapped = true
		}
	}
	return strings.Join(segs, "/"), swapped
}
