package filtergraph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "textoverlay/internal/pkg/errors"
)

// Style controls how captions are drawn and the canvas they are drawn on.
type Style struct {
	Width            int     `yaml:"width" json:"width"`
	Height           int     `yaml:"height" json:"height"`
	FontSize         int     `yaml:"font_size" json:"fontSize"`
	FontColor        string  `yaml:"font_color" json:"fontColor"`
	LineSpacing      int     `yaml:"line_spacing" json:"lineSpacing"`
	BoxColor         string  `yaml:"box_color" json:"boxColor"`
	BoxBorder        int     `yaml:"box_border" json:"boxBorder"`
	BoxWidthFraction float64 `yaml:"box_width_fraction" json:"boxWidthFraction,omitempty"`
	TextAlign        string  `yaml:"text_align" json:"textAlign,omitempty"`
	X                string  `yaml:"x" json:"x"`
	Y                string  `yaml:"y" json:"y"`
	WrapWidth        int     `yaml:"wrap_width" json:"wrapWidth"`
}

// DefaultStyle is the vertical 1080x1920 centered caption look.
func DefaultStyle() Style {
	return Style{
		Width:       1080,
		Height:      1920,
		FontSize:    36,
		FontColor:   "white",
		LineSpacing: 20,
		BoxColor:    "black@0.5",
		BoxBorder:   20,
		X:           "(w-text_w)/2",
		Y:           "(h-text_h)/2",
		WrapWidth:   28,
	}
}

// Validate rejects styles ffmpeg would choke on.
func (s Style) Validate() error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return apperrors.ValidationField("style", "canvas dimensions must be positive")
	case s.Width%2 != 0 || s.Height%2 != 0:
		return apperrors.ValidationField("style", "canvas dimensions must be even for yuv420p")
	case s.FontSize <= 0:
		return apperrors.ValidationField("style", "font size must be positive")
	case s.WrapWidth <= 0:
		return apperrors.ValidationField("style", "wrap width must be positive")
	case s.BoxWidthFraction < 0 || s.BoxWidthFraction > 1:
		return apperrors.ValidationField("style", "box width fraction must be within [0,1]")
	case s.FontColor == "" || s.BoxColor == "":
		return apperrors.ValidationField("style", "font and box colors are required")
	}
	return nil
}

// StyleSet is a named collection of presets with one default.
type StyleSet struct {
	Default string
	Styles  map[string]Style
}

// DefaultStyleSet holds only the built-in preset.
func DefaultStyleSet() *StyleSet {
	return &StyleSet{
		Default: "default",
		Styles:  map[string]Style{"default": DefaultStyle()},
	}
}

// Lookup returns the named preset. An empty name selects the default.
func (s *StyleSet) Lookup(name string) (Style, error) {
	if name == "" {
		name = s.Default
	}
	st, ok := s.Styles[name]
	if !ok {
		return Style{}, apperrors.ValidationField("style", fmt.Sprintf("unknown style preset: %s", name))
	}
	return st, nil
}

// Names lists the configured presets.
func (s *StyleSet) Names() []string {
	names := make([]string, 0, len(s.Styles))
	for n := range s.Styles {
		names = append(names, n)
	}
	return names
}

type styleFile struct {
	Default string               `yaml:"default"`
	Styles  map[string]yaml.Node `yaml:"styles"`
}

// LoadStyles reads a YAML preset file. Every preset starts from DefaultStyle,
// so a preset only needs to list the fields it changes. The built-in
// "default" preset is always present unless the file overrides it.
func LoadStyles(path string) (*StyleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, "filtergraph.LoadStyles", "read style file")
	}
	return ParseStyles(raw)
}

// ParseStyles decodes preset YAML. See LoadStyles.
func ParseStyles(raw []byte) (*StyleSet, error) {
	var f styleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeValidation, "filtergraph.ParseStyles", "invalid style yaml")
	}

	set := DefaultStyleSet()
	for name, node := range f.Styles {
		st := DefaultStyle()
		if err := node.Decode(&st); err != nil {
			return nil, apperrors.WrapWithCode(err, apperrors.CodeValidation, "filtergraph.ParseStyles", "invalid style "+name)
		}
		if err := st.Validate(); err != nil {
			return nil, apperrors.Wrap(err, "filtergraph.ParseStyles", "invalid style "+name)
		}
		set.Styles[name] = st
	}

	if f.Default != "" {
		if _, ok := set.Styles[f.Default]; !ok {
			return nil, apperrors.ValidationField("default", "default style not defined: "+f.Default)
		}
		set.Default = f.Default
	}
	return set, nil
}
