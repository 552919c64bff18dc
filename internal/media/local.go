package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dom/duo-chat/internal/domain"
)

// LocalUploader keeps objects on disk named by their sha256 digest, so uploading the
// same bytes twice yields the same URL and one file.
type LocalUploader struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewLocalUploader(dir, baseURL string, maxBytes int64) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalUploader{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Dir is the directory objects are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) Upload(ctx context.Context, dataURI string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}

	p, err := Decode(dataURI, u.maxBytes)
	if err != nil {
		return nil, err
	}

	name := p.Digest + p.Extension
	path := filepath.Join(u.dir, name)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := writeAtomic(u.dir, path, p.Data); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpload, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}

	return &Asset{
		URL:         u.baseURL + "/" + name,
		ContentType: p.ContentType,
		Size:        int64(len(p.Data)),
		Digest:      p.Digest,
	}, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
