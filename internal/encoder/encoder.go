// Package encoder builds and runs the ffmpeg invocation for one render.
package encoder

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	apperrors "textoverlay/internal/pkg/errors"
	"textoverlay/internal/pkg/logger"
)

// Invocation is everything needed to encode one render.
type Invocation struct {
	Video      string
	Audio      string // optional separate audio track
	Graph      string
	FinalLabel string
	Output     string
}

// HasAudio reports whether a separate audio input is present.
func (inv Invocation) HasAudio() bool { return inv.Audio != "" }

// FFmpeg holds the fixed output codec settings.
type FFmpeg struct {
	Path         string
	Preset       string
	CRF          int
	AudioBitrate string

	log *logger.Logger
}

// New returns an encoder with the default x264 settings.
func New(path string, log *logger.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &FFmpeg{
		Path:         path,
		Preset:       "veryfast",
		CRF:          20,
		AudioBitrate: "192k",
		log:          log.WithComponent("encoder"),
	}
}

// BuildArgs returns the ffmpeg argument vector for inv, without the binary.
func (f *FFmpeg) BuildArgs(inv Invocation) []string {
	args := []string{"-y", "-i", inv.Video}
	if inv.HasAudio() {
		args = append(args, "-i", inv.Audio)
	}

	args = append(args,
		"-filter_complex", inv.Graph,
		"-map", "["+inv.FinalLabel+"]",
	)
	if inv.HasAudio() {
		args = append(args, "-map", "1:a:0")
	} else {
		args = append(args, "-map", "0:a?")
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", f.Preset,
		"-crf", strconv.Itoa(f.CRF),
		"-pix_fmt", "yuv420p",
	)
	if inv.HasAudio() {
		args = append(args, "-c:a", "aac", "-b:a", f.AudioBitrate, "-shortest")
	} else {
		args = append(args, "-c:a", "copy")
	}

	return append(args, "-movflags", "+faststart", inv.Output)
}

// DryRun renders the command line without running it.
func (f *FFmpeg) DryRun(inv Invocation) string {
	args := f.BuildArgs(inv)
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, f.Path)
	for _, a := range args {
		if strings.ContainsAny(a, " ;'[]\"") {
			a = strconv.Quote(a)
		}
		quoted = append(quoted, a)
	}
	return strings.Join(quoted, " ")
}

// Invoke runs ffmpeg and waits for it. A render that reached this point is
// never interrupted, so ctx is only checked before the process starts.
// Any failure carries the tail of ffmpeg's stderr.
func (f *FFmpeg) Invoke(ctx context.Context, inv Invocation) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Encode(err, "")
	}

	args := f.BuildArgs(inv)
	f.log.FromContext(ctx).Debug("running ffmpeg", "inputs", 1+btoi(inv.HasAudio()), "output", inv.Output)

	stderr := newTail(8 << 10)
	cmd := exec.Command(f.Path, args...)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		diag := stderr.String()
		if exitErr, ok := err.(*exec.ExitError); ok {
			err = fmt.Errorf("exit status %d", exitErr.ExitCode())
		}
		return apperrors.Encode(err, diag)
	}
	return nil
}

// Version runs "ffmpeg -version" and returns its first line.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, f.Path, "-version").Output()
	if err != nil {
		return "", apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "encoder.Version", "ffmpeg not runnable")
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
