// Package render runs the overlay pipeline for one request: stage, fetch,
// compile, encode, publish, and clean up on every exit path.
package render

import (
	"context"
	"os"
	"time"

	"textoverlay/internal/encoder"
	"textoverlay/internal/events"
	"textoverlay/internal/fetch"
	"textoverlay/internal/filtergraph"
	"textoverlay/internal/ledger"
	apperrors "textoverlay/internal/pkg/errors"
	"textoverlay/internal/pkg/logger"
	"textoverlay/internal/staging"
)

// Encoder runs one ffmpeg invocation.
type Encoder interface {
	Invoke(ctx context.Context, inv encoder.Invocation) error
	DryRun(inv encoder.Invocation) string
}

// Publisher stores a finished render and returns its key and URL.
type Publisher interface {
	Publish(ctx context.Context, localPath, key string) (storedKey, url string, err error)
}

type Deps struct {
	Area      *staging.Area
	Fetcher   fetch.Fetcher
	Encoder   Encoder
	Publisher Publisher
	Styles    *filtergraph.StyleSet
	FontPath  string
	Recorder  ledger.Recorder
	Notifier  events.Notifier
	Log       *logger.Logger
}

type Renderer struct {
	area      *staging.Area
	fetcher   fetch.Fetcher
	encoder   Encoder
	publisher Publisher
	styles    *filtergraph.StyleSet
	fontPath  string
	recorder  ledger.Recorder
	notifier  events.Notifier
	log       *logger.Logger
}

func New(d Deps) *Renderer {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	styles := d.Styles
	if styles == nil {
		styles = filtergraph.DefaultStyleSet()
	}
	var rec ledger.Recorder = ledger.Nop{}
	if d.Recorder != nil {
		rec = d.Recorder
	}
	var notifier events.Notifier = events.Nop{}
	if d.Notifier != nil {
		notifier = d.Notifier
	}

	return &Renderer{
		area:      d.Area,
		fetcher:   d.Fetcher,
		encoder:   d.Encoder,
		publisher: d.Publisher,
		styles:    styles,
		fontPath:  d.FontPath,
		recorder:  rec,
		notifier:  notifier,
		log:       log.WithComponent("render"),
	}
}

// Result describes a published render.
type Result struct {
	RenderID string        `json:"renderId"`
	Key      string        `json:"key"`
	URL      string        `json:"url"`
	Overlays int           `json:"overlays"`
	Duration time.Duration `json:"-"`
}

// Render runs the whole pipeline. Every scratch path the render allocated is
// gone from disk when Render returns, whatever the outcome.
func (r *Renderer) Render(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	style, err := r.styles.Lookup(req.Style)
	if err != nil {
		return nil, err
	}

	staged, err := r.area.Stage("rnd")
	if err != nil {
		return nil, err
	}
	ctx = logger.ContextWithRenderID(ctx, staged.ID)
	log := r.log.FromContext(ctx)
	defer r.cleanup(log, staged)

	started := time.Now()
	r.record(log, "start", r.recorder.Start(ctx, ledger.Render{
		ID:           staged.ID,
		VideoURL:     req.VideoURL,
		AudioURL:     req.AudioURL,
		OverlayCount: len(req.Overlays),
		Style:        req.Style,
	}))

	// 1. Inputs
	videoPath := staged.Path(inputName("input_video", req.VideoURL, ".mp4"))
	downloads := []fetch.Download{{URL: req.VideoURL, Dest: videoPath}}
	var audioPath string
	if req.HasAudio() {
		audioPath = staged.Path(inputName("input_audio", req.AudioURL, ".mp3"))
		downloads = append(downloads, fetch.Download{URL: req.AudioURL, Dest: audioPath})
	}
	log.Debug("fetching inputs", "count", len(downloads))
	if err := fetch.All(ctx, r.fetcher, downloads); err != nil {
		return nil, r.fail(ctx, log, staged.ID, started, err)
	}

	// 2. Filter graph
	graph, err := filtergraph.Compile(req.Overlays, r.fontPath, filtergraph.InputVideo, style, staged)
	if err != nil {
		return nil, r.fail(ctx, log, staged.ID, started, apperrors.Wrap(err, "render.compile", "compile filter graph"))
	}
	log.Debug("filter graph compiled", "stages", len(req.Overlays)+1, "final_label", string(graph.FinalLabel))

	// 3. Encode
	outPath := staged.Path("output.mp4")
	inv := encoder.Invocation{
		Video:      videoPath,
		Audio:      audioPath,
		Graph:      graph.Expression,
		FinalLabel: string(graph.FinalLabel),
		Output:     outPath,
	}
	log.Info("encoding", "overlays", len(req.Overlays), "audio", req.HasAudio())
	if err := r.encoder.Invoke(ctx, inv); err != nil {
		return nil, r.fail(ctx, log, staged.ID, started, err)
	}

	// 4. Publish
	key := req.OutputKey
	if key == "" {
		key = DefaultKey(staged.ID)
	}
	storedKey, url, err := r.publisher.Publish(ctx, outPath, key)
	if err != nil {
		return nil, r.fail(ctx, log, staged.ID, started, err)
	}

	res := &Result{
		RenderID: staged.ID,
		Key:      storedKey,
		URL:      url,
		Overlays: len(req.Overlays),
		Duration: time.Since(started),
	}
	r.record(log, "complete", r.recorder.Complete(context.WithoutCancel(ctx), staged.ID, storedKey, url))
	r.notify(ctx, log, events.Event{
		Type:       events.TypeCompleted,
		RenderID:   staged.ID,
		Key:        storedKey,
		URL:        url,
		DurationMS: res.Duration.Milliseconds(),
	})
	log.Info("render completed", "key", storedKey, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (r *Renderer) fail(ctx context.Context, log *logger.Logger, id string, started time.Time, cause error) error {
	code := apperrors.GetCode(cause)
	if apperrors.IsValidation(cause) {
		log.WithError(cause).Warn("render rejected", "code", string(code))
	} else {
		log.WithError(cause).Error("render failed", "code", string(code))
	}

	r.record(log, "fail", r.recorder.Fail(context.WithoutCancel(ctx), id, code, cause.Error()))
	r.notify(ctx, log, events.Event{
		Type:       events.TypeFailed,
		RenderID:   id,
		ErrorCode:  string(code),
		Error:      cause.Error(),
		DurationMS: time.Since(started).Milliseconds(),
	})
	return cause
}

func (r *Renderer) cleanup(log *logger.Logger, staged *staging.Request) {
	for _, w := range staged.Cleanup() {
		log.WithError(w).Warn("cleanup warning")
	}
}

func (r *Renderer) record(log *logger.Logger, step string, err error) {
	if err != nil {
		log.WithError(err).Warn("ledger update failed", "step", step)
	}
}

// notify and the ledger updates outlive a caller that has gone away.
func (r *Renderer) notify(ctx context.Context, log *logger.Logger, e events.Event) {
	if err := r.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		log.WithError(err).Warn("event publish failed", "type", e.Type)
	}
}

// Plan is a compiled but unexecuted render.
type Plan struct {
	Graph       string   `json:"graph"`
	FinalLabel  string   `json:"finalLabel"`
	Command     string   `json:"command"`
	CaptionText []string `json:"captionText"`
}

// Plan compiles req against placeholder inputs and returns the filter graph
// and ffmpeg command line without downloading or encoding anything. The
// caption files it writes are removed before it returns.
func (r *Renderer) Plan(req Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	style, err := r.styles.Lookup(req.Style)
	if err != nil {
		return nil, err
	}

	staged, err := r.area.Stage("plan")
	if err != nil {
		return nil, err
	}
	defer r.cleanup(r.log, staged)

	graph, err := filtergraph.Compile(req.Overlays, r.fontPath, filtergraph.InputVideo, style, staged)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(graph.TextFiles))
	for _, p := range graph.TextFiles {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, apperrors.Wrap(err, "render.Plan", "read caption text")
		}
		texts = append(texts, string(b))
	}

	inv := encoder.Invocation{
		Video:      staged.Path(inputName("input_video", req.VideoURL, ".mp4")),
		Graph:      graph.Expression,
		FinalLabel: string(graph.FinalLabel),
		Output:     staged.Path("output.mp4"),
	}
	if req.HasAudio() {
		inv.Audio = staged.Path(inputName("input_audio", req.AudioURL, ".mp3"))
	}

	return &Plan{
		Graph:       graph.Expression,
		FinalLabel:  string(graph.FinalLabel),
		Command:     r.encoder.DryRun(inv),
		CaptionText: texts,
	}, nil
}
