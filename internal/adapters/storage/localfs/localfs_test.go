package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"textoverlay/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := New(root, "http://localhost:8080/")

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "renders/overlay_1.mp4",
		ContentType: "video/mp4",
		Reader:      strings.NewReader("mp4-bytes"),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "renders/overlay_1.mp4" || out.Size != 9 {
		t.Errorf("unexpected output: %+v", out)
	}

	rc, ct, size, err := fs.GetObject(ctx, out.ObjectKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "mp4-bytes" || size != 9 {
		t.Errorf("body=%q size=%d", body, size)
	}
	if ct == "" {
		t.Error("expected a content type")
	}

	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "renders", "overlay_1.mp4")); !os.IsNotExist(err) {
		t.Error("object should be gone")
	}
}

func TestPublicURL(t *testing.T) {
	fs := New(t.TempDir(), "http://localhost:8080/")
	u, err := fs.PublicURL(context.Background(), "overlay_1.mp4")
	if err != nil {
		t.Fatalf("PublicURL: %v", err)
	}
	if u != "http://localhost:8080/files/overlay_1.mp4" {
		t.Errorf("url = %s", u)
	}
}

func TestKeysStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "store")
	fs := New(root, "")

	_, err := fs.PutObject(ctx, ports.PutObjectInput{ObjectKey: "../../etc/x", Reader: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "etc", "x")); err != nil {
		t.Errorf("traversal key should be confined to root: %v", err)
	}

	if _, err := fs.PublicURL(ctx, ""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestGetMissing(t *testing.T) {
	fs := New(t.TempDir(), "")
	if _, _, _, err := fs.GetObject(context.Background(), "nope.mp4"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	fs := New(filepath.Join(t.TempDir(), "new-root"), "")
	if err := fs.Check(context.Background()); err != nil {
		t.Errorf("Check: %v", err)
	}
}
