package filtergraph

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "textoverlay/internal/pkg/errors"
)

// InputVideo is the stream label of the first input's video track.
const InputVideo = "0:v"

// Caption is one piece of text shown during the half-open window [Start, End)
// seconds of the output.
type Caption struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Label names a stream inside the filter graph.
type Label string

// Ref renders the label in its bracketed form.
func (l Label) Ref() string { return "[" + string(l) + "]" }

// ChainLabel is the label produced by stage i of the chain. Stage 0 is the
// scale/crop seed.
func ChainLabel(i int) Label { return Label("v" + strconv.Itoa(i)) }

// PathAllocator hands out scratch paths that the caller will clean up.
type PathAllocator interface {
	Path(name string) string
}

// Graph is a compiled filter_complex expression.
type Graph struct {
	Expression string
	// FinalLabel is the label the encoder maps as video output.
	FinalLabel Label
	// TextFiles lists the caption files written, in caption order.
	TextFiles []string
}

// Compile writes one text file per caption through alloc and returns the
// chained filter graph rooted at base (normally InputVideo).
func Compile(captions []Caption, fontPath string, base string, style Style, alloc PathAllocator) (*Graph, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	if fontPath == "" {
		return nil, apperrors.New(apperrors.CodeInternal, "font path is not configured")
	}

	stages := make([]string, 0, len(captions)+1)
	stages = append(stages, seedStage(base, style))

	files := make([]string, 0, len(captions))
	for i, c := range captions {
		textPath := alloc.Path(fmt.Sprintf("caption_%03d.txt", i))
		body := Wrap(stripBrackets(c.Text), style.WrapWidth)
		if err := os.WriteFile(textPath, []byte(body), 0o644); err != nil {
			return nil, apperrors.Wrap(err, "filtergraph.Compile", "write caption text")
		}
		files = append(files, textPath)

		stages = append(stages, ChainLabel(i).Ref()+drawtext(fontPath, textPath, c, style)+ChainLabel(i+1).Ref())
	}

	return &Graph{
		Expression: strings.Join(stages, ";"),
		FinalLabel: ChainLabel(len(captions)),
		TextFiles:  files,
	}, nil
}

func seedStage(base string, s Style) string {
	return fmt.Sprintf("[%s]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d%s",
		base, s.Width, s.Height, s.Width, s.Height, ChainLabel(0).Ref())
}

func drawtext(fontPath, textPath string, c Caption, s Style) string {
	opts := []string{
		"fontfile='" + EscapePath(fontPath) + "'",
		"textfile='" + EscapePath(textPath) + "'",
		"expansion=none",
		"fontcolor=" + s.FontColor,
		"fontsize=" + strconv.Itoa(s.FontSize),
		"line_spacing=" + strconv.Itoa(s.LineSpacing),
		"box=1",
		"boxcolor=" + s.BoxColor,
		"boxborderw=" + strconv.Itoa(s.BoxBorder),
	}
	if s.BoxWidthFraction > 0 {
		opts = append(opts, "boxw="+formatSeconds(s.BoxWidthFraction*float64(s.Width)))
	}
	if s.TextAlign != "" {
		opts = append(opts, "text_align="+s.TextAlign)
	}
	opts = append(opts,
		"x='"+s.X+"'",
		"y='"+s.Y+"'",
		"enable='gte(t,"+formatSeconds(c.Start)+")*lt(t,"+formatSeconds(c.End)+")'",
	)
	return "drawtext=" + strings.Join(opts, ":")
}

// EscapePath makes a filesystem path safe inside a single-quoted drawtext
// option: backslashes become forward slashes and colons are escaped.
func EscapePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.ReplaceAll(p, ":", `\:`)
}

var bracketStripper = strings.NewReplacer("[", "", "]", "")

func stripBrackets(s string) string { return bracketStripper.Replace(s) }

func formatSeconds(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
