package render

import (
	"context"
	"os"

	apperrors "textoverlay/internal/pkg/errors"
	"textoverlay/internal/pkg/logger"
	"textoverlay/internal/ports"
)

// StoragePublisher uploads finished renders to a storage provider.
type StoragePublisher struct {
	sp  ports.StorageProvider
	log *logger.Logger
}

func NewStoragePublisher(sp ports.StorageProvider, log *logger.Logger) *StoragePublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &StoragePublisher{sp: sp, log: log.WithComponent("publisher")}
}

// Publish uploads localPath under key and returns the stored key and its
// public URL. There is a single attempt; every failure is an upload error.
func (p *StoragePublisher) Publish(ctx context.Context, localPath, key string) (string, string, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return "", "", apperrors.Upload(err, key)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", "", apperrors.Upload(err, key)
	}
	defer f.Close()

	out, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: "video/mp4",
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return "", "", apperrors.Upload(err, key)
	}

	url, err := p.sp.PublicURL(ctx, out.ObjectKey)
	if err != nil {
		// The object is unreachable without a URL; don't leave it behind.
		if delErr := p.sp.DeleteObject(ctx, out.ObjectKey); delErr != nil {
			p.log.FromContext(ctx).WithError(delErr).Warn("failed to remove unpublished object", "key", out.ObjectKey)
		}
		return "", "", apperrors.Upload(err, key)
	}

	p.log.FromContext(ctx).Debug("published", "provider", p.sp.Provider(), "key", out.ObjectKey, "size", out.Size)
	return out.ObjectKey, url, nil
}
