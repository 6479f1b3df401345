package encoder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"unicode/utf8"

	apperrors "textoverlay/internal/pkg/errors"
)

// writeFakeFFmpeg installs a shell script standing in for ffmpeg.
func writeFakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildArgsVideoOnly(t *testing.T) {
	f := New("ffmpeg", nil)
	args := f.BuildArgs(Invocation{
		Video:      "/s/video.mp4",
		Graph:      "[0:v]scale=1080:1920[v0]",
		FinalLabel: "v0",
		Output:     "/s/out.mp4",
	})

	want := []string{
		"-y", "-i", "/s/video.mp4",
		"-filter_complex", "[0:v]scale=1080:1920[v0]",
		"-map", "[v0]", "-map", "0:a?",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "20", "-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart", "/s/out.mp4",
	}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("args mismatch\n got: %v\nwant: %v", args, want)
	}
}

func TestBuildArgsWithAudio(t *testing.T) {
	f := New("ffmpeg", nil)
	args := strings.Join(f.BuildArgs(Invocation{
		Video:      "v.mp4",
		Audio:      "a.mp3",
		Graph:      "g",
		FinalLabel: "v2",
		Output:     "out.mp4",
	}), " ")

	for _, want := range []string{
		"-i v.mp4 -i a.mp3",
		"-map [v2] -map 1:a:0",
		"-c:a aac -b:a 192k -shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in %s", want, args)
		}
	}
	if strings.Contains(args, "0:a?") {
		t.Error("optional source audio must not be mapped when audio input is present")
	}
	if !strings.HasPrefix(args, "-y ") || !strings.HasSuffix(args, " out.mp4") {
		t.Errorf("overwrite flag and output path misplaced: %s", args)
	}
}

func TestDryRunQuotesGraph(t *testing.T) {
	f := New("/usr/bin/ffmpeg", nil)
	out := f.DryRun(Invocation{Video: "v.mp4", Graph: "[0:v]a;[v0]b", FinalLabel: "v1", Output: "o.mp4"})
	if !strings.HasPrefix(out, "/usr/bin/ffmpeg -y") {
		t.Errorf("unexpected dry run: %s", out)
	}
	if !strings.Contains(out, `"[0:v]a;[v0]b"`) {
		t.Errorf("graph should be quoted: %s", out)
	}
}

func TestInvokeSuccess(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := writeFakeFFmpeg(t, `echo "$@" > `+argsFile+`
for last; do :; done
touch "$last"`)

	out := filepath.Join(t.TempDir(), "out.mp4")
	f := New(bin, nil)
	err := f.Invoke(context.Background(), Invocation{Video: "in.mp4", Graph: "g", FinalLabel: "v0", Output: out})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Error("expected output file")
	}
	recorded, _ := os.ReadFile(argsFile)
	if !strings.Contains(string(recorded), "-filter_complex g") {
		t.Errorf("unexpected args: %s", recorded)
	}
}

func TestInvokeFailureCarriesDiagnostics(t *testing.T) {
	bin := writeFakeFFmpeg(t, `echo "Error initializing complex filters" >&2
exit 1`)

	err := New(bin, nil).Invoke(context.Background(), Invocation{Video: "in.mp4", Graph: "g", FinalLabel: "v0", Output: "o.mp4"})
	if !apperrors.IsCode(err, apperrors.CodeEncode) {
		t.Fatalf("expected encode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Error initializing complex filters") {
		t.Errorf("expected stderr in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("expected exit status in error, got %v", err)
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "no-ffmpeg"), nil)
	err := f.Invoke(context.Background(), Invocation{Video: "in.mp4", Output: "o.mp4"})
	if !apperrors.IsCode(err, apperrors.CodeEncode) {
		t.Fatalf("expected encode error, got %v", err)
	}
}

func TestInvokeCancelledBeforeStart(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	bin := writeFakeFFmpeg(t, "touch "+marker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(bin, nil).Invoke(ctx, Invocation{Video: "in.mp4", Output: "o.mp4"})
	if !apperrors.IsCode(err, apperrors.CodeEncode) {
		t.Fatalf("expected encode error, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("ffmpeg should not start after cancellation")
	}
}

func TestVersion(t *testing.T) {
	bin := writeFakeFFmpeg(t, `echo "ffmpeg version 6.1-test"
echo "built with gcc"`)

	v, err := New(bin, nil).Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "ffmpeg version 6.1-test" {
		t.Errorf("version = %q", v)
	}
}

func TestTailKeepsLastBytes(t *testing.T) {
	tl := newTail(5)
	_, _ = tl.Write([]byte("abc"))
	_, _ = tl.Write([]byte("defgh"))
	if tl.String() != "defgh" {
		t.Errorf("tail = %q", tl.String())
	}
}

func TestTailDropsSplitRune(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
	}{
		{"two byte rune cut", []string{"é", "abcd"}, "abcd"},
		{"three byte rune cut", []string{"x€", "abc"}, "abc"},
		{"rune kept when whole", []string{"ab", "é"}, "abé"},
		{"across writes", []string{"\xe2\x82", "\xacok"}, "€ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTail(5)
			for _, w := range tt.writes {
				_, _ = tl.Write([]byte(w))
			}
			got := tl.String()
			if !utf8.ValidString(got) {
				t.Fatalf("tail %q is not valid UTF-8", got)
			}
			if got != tt.want {
				t.Errorf("tail = %q, want %q", got, tt.want)
			}
		})
	}
}
