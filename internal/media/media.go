// Package media reconciles the representations a media asset can take
// (remote URL, inline data URI, transient in-process handle) into a single
// transmittable source.
package media

import (
	"net/url"
	"path"
	"strings"
)

// Kind tells the renderer how to treat a visual source.
type Kind string

const (
	KindClip  Kind = "clip"
	KindImage Kind = "image"
)

// Ref points at one media asset. Data is an inline data URI, URL is a remote
// or local locator, Handle is a transient key into a Store. Only Data and a
// fetchable URL survive persistence.
type Ref struct {
	URL    string `json:"url,omitempty"`
	Data   string `json:"data,omitempty"`
	Handle string `json:"handle,omitempty"`
}

func (r Ref) IsZero() bool {
	return r.URL == "" && r.Data == "" && r.Handle == ""
}

// Durable reports whether the ref carries something that survives a reload.
func (r Ref) Durable() bool {
	return r.Data != "" || IsFetchable(r.URL)
}

// Source is the resolved, transmittable form of a Ref. Exactly one field is set.
type Source struct {
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (s Source) IsZero() bool {
	return s.Data == "" && s.URL == ""
}

// Identity returns a short stable identifier for the source, hashing inline
// payloads so large data URIs never end up in logs or fingerprints verbatim.
func (s Source) Identity() string {
	if s.URL != "" {
		return "url:" + s.URL
	}
	if s.Data != "" {
		return "data:" + digest(s.Data)
	}
	return ""
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".mkv":  true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".svg":  true,
	".avif": true,
	".heic": true,
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
}

// IsFetchable reports whether raw is a URL the external renderer can download.
// blob:, file: and bare paths are local to this process.
func IsFetchable(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// LooksLikeVideo reports whether raw plausibly refers to playable video:
// a data URI with a video/* mime, a path with a known video extension, or a
// path under a video/videos directory. A known image extension always wins
// over the directory, so thumbnails stored next to clips stay images.
func LooksLikeVideo(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "data:") {
		return strings.HasPrefix(strings.ToLower(DataURIMime(raw)), "video/")
	}
	p := refPath(raw)
	ext := strings.ToLower(path.Ext(p))
	if videoExtensions[ext] {
		return true
	}
	if imageExtensions[ext] {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		switch strings.ToLower(seg) {
		case "video", "videos":
			return true
		}
	}
	return false
}

// LooksLikeAudio reports whether raw plausibly refers to an audio asset.
func LooksLikeAudio(raw string) bool {
	if strings.HasPrefix(raw, "data:") {
		return strings.HasPrefix(strings.ToLower(DataURIMime(raw)), "audio/")
	}
	return audioExtensions[strings.ToLower(path.Ext(refPath(raw)))]
}

func refPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path != "" {
		return u.Path
	}
	return u.Opaque
}
