package storage

import (
	"context"
	"fmt"
	"os"

	"textoverlay/internal/adapters/storage/gcs"
	"textoverlay/internal/adapters/storage/gdrive"
	"textoverlay/internal/adapters/storage/localfs"
	"textoverlay/internal/adapters/storage/minio"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gcsapi "google.golang.org/api/storage/v1"
)

// Config selects and configures one provider.
type Config struct {
	Provider string

	LocalRoot    string
	LocalBaseURL string

	GDrive GDriveConfig
	GCS    GCSConfig
	MinIO  minio.Config
}

type GDriveConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
	ShareAnyone  bool
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
}

func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "localfs"
	}

	switch provider {
	case "localfs":
		if cfg.LocalRoot == "" {
			return nil, fmt.Errorf("missing STORAGE_LOCAL_ROOT")
		}
		return localfs.New(cfg.LocalRoot, cfg.LocalBaseURL), nil

	case "gdrive":
		return newGDriveProvider(ctx, cfg.GDrive)

	case "gcs":
		return newGCSProvider(ctx, cfg.GCS)

	case "minio":
		return minio.New(ctx, cfg.MinIO)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

// DriveOAuthConfig is shared with the refresh-token helper in overlayctl.
func DriveOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
}

func newGDriveProvider(ctx context.Context, cfg GDriveConfig) (Provider, error) {
	for k, v := range map[string]string{
		"GDRIVE_CLIENT_ID":     cfg.ClientID,
		"GDRIVE_CLIENT_SECRET": cfg.ClientSecret,
		"GDRIVE_REFRESH_TOKEN": cfg.RefreshToken,
	} {
		if v == "" {
			return nil, fmt.Errorf("missing %s", k)
		}
	}

	conf := DriveOAuthConfig(cfg.ClientID, cfg.ClientSecret)
	tok := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, cfg.FolderID, cfg.ShareAnyone), nil
}

func newGCSProvider(ctx context.Context, cfg GCSConfig) (Provider, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET_NAME")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("gcs credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, raw, gcsapi.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("gcs credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	} else {
		ts, err := google.DefaultTokenSource(ctx, gcsapi.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("gcs default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	srv, err := gcsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return gcs.New(srv, cfg.Bucket, cfg.PublicBaseURL), nil
}
