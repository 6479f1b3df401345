// Package config resolves process configuration from the environment once at
// startup. Nothing else in the module reads environment variables.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"

	"textoverlay/internal/adapters/storage/minio"
	"textoverlay/internal/filtergraph"
	apperrors "textoverlay/internal/pkg/errors"
	"textoverlay/internal/pkg/logger"
	"textoverlay/internal/storage"
	"textoverlay/internal/util"
)

// Config is the resolved, immutable process configuration.
type Config struct {
	HTTPPort      string
	RenderTimeout time.Duration
	CORSOrigins   []string
	MaxBodyBytes  int64

	LogLevel  string
	LogFormat string
	LogSource bool

	ScratchDir string
	FFmpegPath string
	FontPath   string

	VideoPreset  string
	VideoCRF     int
	AudioBitrate string
	Styles       *filtergraph.StyleSet

	DownloadTimeout   time.Duration
	DownloadUserAgent string

	StagingMaxAge        time.Duration
	StagingSweepInterval time.Duration

	Storage storage.Config

	DatabaseURL   string
	RedisAddr     string
	EventsChannel string
}

// Logger returns the logger settings for a service.
func (c *Config) Logger(service string) logger.Config {
	return logger.Config{
		Level:       c.LogLevel,
		Format:      c.LogFormat,
		AddSource:   c.LogSource,
		ServiceName: service,
	}
}

// Load reads .env when present, then the environment. It resolves the ffmpeg
// binary, checks the font file, creates the scratch dir and loads the style
// presets, so a returned Config is ready to use.
func Load() (*Config, error) {
	_ = LoadEnvFile()
	return FromEnv()
}

// LoadEnvFile loads variables from the given files, or from .env when none
// are given. A missing default .env is not an error. Variables already set
// in the environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return apperrors.Wrap(err, "config.LoadEnvFile", "load env file")
	}
	return nil
}

// FromEnv is Load without the .env file.
func FromEnv() (*Config, error) {
	port := util.Env("HTTP_PORT", util.Env("PORT", "8080"))

	c := &Config{
		HTTPPort:      port,
		RenderTimeout: util.DurationEnv("RENDER_TIMEOUT", 10*time.Minute),
		CORSOrigins: util.CSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:8081",
		}),
		MaxBodyBytes: int64(util.IntEnv("MAX_BODY_BYTES", 1<<20)),

		LogLevel:  util.Env("LOG_LEVEL", "info"),
		LogFormat: util.Env("LOG_FORMAT", "json"),
		LogSource: util.BoolEnv("LOG_SOURCE", false),

		ScratchDir: util.Env("SCRATCH_DIR", "./scratch"),
		FFmpegPath: util.Env("FFMPEG_PATH", "ffmpeg"),
		FontPath:   util.Env("FONT_PATH", "./fonts/Roboto-Bold.ttf"),

		VideoPreset:  util.Env("VIDEO_PRESET", "veryfast"),
		VideoCRF:     util.IntEnv("VIDEO_CRF", 20),
		AudioBitrate: util.Env("AUDIO_BITRATE", "192k"),

		DownloadTimeout:   util.DurationEnv("DOWNLOAD_TIMEOUT", 2*time.Minute),
		DownloadUserAgent: util.Env("DOWNLOAD_USER_AGENT", "textoverlay/1.0"),

		StagingMaxAge:        util.DurationEnv("STAGING_MAX_AGE", time.Hour),
		StagingSweepInterval: util.DurationEnv("STAGING_SWEEP_INTERVAL", 15*time.Minute),

		Storage: storageFromEnv(port),

		DatabaseURL:   util.Env("DATABASE_URL", ""),
		RedisAddr:     util.Env("REDIS_ADDR", ""),
		EventsChannel: util.Env("EVENTS_CHANNEL", "renders"),
	}

	if c.VideoCRF < 0 || c.VideoCRF > 51 {
		return nil, invalid("VIDEO_CRF", "must be between 0 and 51")
	}
	if c.StagingMaxAge <= 0 {
		return nil, invalid("STAGING_MAX_AGE", "must be positive")
	}

	ffmpeg, err := exec.LookPath(c.FFmpegPath)
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "config.Load", "ffmpeg not found: "+c.FFmpegPath)
	}
	c.FFmpegPath = ffmpeg

	if st, err := os.Stat(c.FontPath); err != nil {
		return nil, apperrors.Wrap(err, "config.Load", "font file not readable: "+c.FontPath)
	} else if st.IsDir() {
		return nil, invalid("FONT_PATH", "is a directory")
	}

	if err := os.MkdirAll(c.ScratchDir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "config.Load", "create scratch dir")
	}

	styles, err := loadStyles()
	if err != nil {
		return nil, err
	}
	c.Styles = styles

	return c, nil
}

// loadStyles reads STYLE_FILE when set, selects DEFAULT_STYLE and applies
// VIDEO_WIDTH/VIDEO_HEIGHT to the built-in preset.
func loadStyles() (*filtergraph.StyleSet, error) {
	set := filtergraph.DefaultStyleSet()
	if path := util.Env("STYLE_FILE", ""); path != "" {
		loaded, err := filtergraph.LoadStyles(path)
		if err != nil {
			return nil, err
		}
		set = loaded
	}

	base := set.Styles["default"]
	base.Width = util.IntEnv("VIDEO_WIDTH", base.Width)
	base.Height = util.IntEnv("VIDEO_HEIGHT", base.Height)
	if err := base.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "config.Load", "invalid VIDEO_WIDTH/VIDEO_HEIGHT")
	}
	set.Styles["default"] = base

	if name := util.Env("DEFAULT_STYLE", ""); name != "" {
		set.Default = name
	}
	if _, err := set.Lookup(""); err != nil {
		return nil, invalid("DEFAULT_STYLE", fmt.Sprintf("unknown preset %q", set.Default))
	}
	return set, nil
}

func storageFromEnv(port string) storage.Config {
	return storage.Config{
		Provider:     util.Env("STORAGE_PROVIDER", "localfs"),
		LocalRoot:    util.Env("STORAGE_LOCAL_ROOT", "./data/renders"),
		LocalBaseURL: util.Env("PUBLIC_BASE_URL", "http://localhost:"+port),
		GDrive: storage.GDriveConfig{
			ClientID:     util.Env("GDRIVE_CLIENT_ID", ""),
			ClientSecret: util.Env("GDRIVE_CLIENT_SECRET", ""),
			RefreshToken: util.Env("GDRIVE_REFRESH_TOKEN", ""),
			FolderID:     util.Env("GDRIVE_FOLDER_ID", ""),
			ShareAnyone:  util.BoolEnv("GDRIVE_SHARE_PUBLIC", true),
		},
		GCS: storage.GCSConfig{
			Bucket:          util.Env("GCS_BUCKET_NAME", ""),
			CredentialsFile: util.Env("GOOGLE_APPLICATION_CREDENTIALS", ""),
			PublicBaseURL:   util.Env("GCS_PUBLIC_BASE_URL", ""),
		},
		MinIO: minio.Config{
			Endpoint:       util.Env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:      util.Env("MINIO_ACCESS_KEY", ""),
			SecretKey:      util.Env("MINIO_SECRET_KEY", ""),
			UseSSL:         util.BoolEnv("MINIO_USE_SSL", false),
			Bucket:         util.Env("MINIO_BUCKET", "renders"),
			PublicEndpoint: util.Env("MINIO_PUBLIC_ENDPOINT", ""),
			Region:         util.Env("MINIO_REGION", ""),
			PresignExpiry:  util.DurationEnv("MINIO_PRESIGN_EXPIRY", 0),
			CreateBucket:   util.BoolEnv("MINIO_CREATE_BUCKET", true),
		},
	}
}

func invalid(key, msg string) error {
	return apperrors.ValidationField(key, key+" "+msg)
}
