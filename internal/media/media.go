// Package media stores image attachments and profile pictures in a content-addressed
// object store and hands back a stable URL.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dom/duo-chat/internal/config"
	"github.com/dom/duo-chat/internal/domain"
	"github.com/vincent-petithory/dataurl"
)

// ErrInvalidImage is returned for payloads that are not an accepted image data URI.
var ErrInvalidImage = errors.New("invalid image data")

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// Asset describes a stored object.
type Asset struct {
	URL         string
	ContentType string
	Size        int64
	Digest      string
}

// Info converts the asset into the metadata persisted alongside a message.
func (a *Asset) Info() domain.MediaInfo {
	return domain.MediaInfo{
		ContentType: a.ContentType,
		Size:        a.Size,
		Digest:      a.Digest,
	}
}

// Uploader stores a base64 data URI and returns where it can be fetched.
// Every error it returns wraps domain.ErrUpload.
type Uploader interface {
	Upload(ctx context.Context, dataURI string) (*Asset, error)
}

// Payload is a decoded and validated image.
type Payload struct {
	ContentType string
	Extension   string
	Data        []byte
	Digest      string
}

// Decode parses a data URI, checks it is an accepted image no larger than maxBytes
// and computes its sha256 digest.
func Decode(dataURI string, maxBytes int64) (*Payload, error) {
	du, err := dataurl.DecodeString(dataURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrUpload, ErrInvalidImage, err)
	}

	contentType := du.MediaType.ContentType()
	ext, ok := extensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %w: unsupported content type %q", domain.ErrUpload, ErrInvalidImage, contentType)
	}
	if len(du.Data) == 0 {
		return nil, fmt.Errorf("%w: %w: empty payload", domain.ErrUpload, ErrInvalidImage)
	}
	if maxBytes > 0 && int64(len(du.Data)) > maxBytes {
		return nil, fmt.Errorf("%w: %w: %d bytes exceeds limit of %d", domain.ErrUpload, ErrInvalidImage, len(du.Data), maxBytes)
	}

	sum := sha256.Sum256(du.Data)
	return &Payload{
		ContentType: contentType,
		Extension:   ext,
		Data:        du.Data,
		Digest:      hex.EncodeToString(sum[:]),
	}, nil
}

// New builds the uploader selected by MEDIA_BACKEND.
func New(cfg *config.Config) (Uploader, error) {
	switch cfg.MediaBackend {
	case "cloudinary":
		return NewCloudinaryUploader(cfg.CloudinaryURL, "duo-chat", cfg.MediaMaxBytes)
	default:
		return NewLocalUploader(cfg.MediaDir, cfg.MediaBaseURL, cfg.MediaMaxBytes)
	}
}
