package render

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"textoverlay/internal/filtergraph"
	apperrors "textoverlay/internal/pkg/errors"
)

// MaxOverlays bounds the filter graph size of a single render.
const MaxOverlays = 200

// Request is one render: a base video, an optional replacement audio track
// and captions in chain order.
type Request struct {
	VideoURL  string                `json:"videoUrl"`
	AudioURL  string                `json:"audioUrl,omitempty"`
	Overlays  []filtergraph.Caption `json:"overlays"`
	OutputKey string                `json:"outputKey,omitempty"`
	Style     string                `json:"style,omitempty"`
}

// HasAudio reports whether a separate audio track was requested.
func (r *Request) HasAudio() bool { return r.AudioURL != "" }

// Validate checks the request before any resource is allocated.
func (r *Request) Validate() error {
	r.VideoURL = strings.TrimSpace(r.VideoURL)
	r.AudioURL = strings.TrimSpace(r.AudioURL)
	r.OutputKey = strings.TrimSpace(r.OutputKey)
	r.Style = strings.TrimSpace(r.Style)

	if r.VideoURL == "" {
		return apperrors.ValidationField("videoUrl", "videoUrl is required")
	}
	if err := checkURL("videoUrl", r.VideoURL); err != nil {
		return err
	}
	if r.AudioURL != "" {
		if err := checkURL("audioUrl", r.AudioURL); err != nil {
			return err
		}
	}

	if r.Overlays == nil {
		return apperrors.ValidationField("overlays", "overlays is required")
	}
	if len(r.Overlays) > MaxOverlays {
		return apperrors.Newf(apperrors.CodeValidation, "at most %d overlays are allowed", MaxOverlays).WithField("field", "overlays")
	}
	for i, c := range r.Overlays {
		field := fmt.Sprintf("overlays[%d]", i)
		if c.Start < 0 {
			return apperrors.ValidationField(field, field+".start must be >= 0")
		}
		if c.End <= c.Start {
			return apperrors.ValidationField(field, field+".end must be greater than start")
		}
	}

	if r.OutputKey != "" {
		if strings.HasPrefix(r.OutputKey, "/") || strings.Contains(r.OutputKey, "\\") {
			return apperrors.ValidationField("outputKey", "outputKey must be a relative slash separated key")
		}
		for _, seg := range strings.Split(r.OutputKey, "/") {
			if seg == ".." || seg == "." || seg == "" {
				return apperrors.ValidationField("outputKey", "outputKey contains an invalid path segment")
			}
		}
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.ValidationField(field, field+" must be an absolute http(s) URL")
	}
	return nil
}

// DefaultKey is the storage key used when a request does not name one.
func DefaultKey(renderID string) string {
	return "overlay_" + renderID + ".mp4"
}

// inputName derives a scratch file name that keeps the remote extension so
// ffmpeg can pick a demuxer by name when probing is ambiguous.
func inputName(base, rawURL, fallbackExt string) string {
	ext := fallbackExt
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); len(e) > 1 && len(e) <= 5 {
			ext = e
		}
	}
	return base + ext
}
