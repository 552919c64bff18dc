package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/dom/duo-chat/internal/domain"
)

// CloudinaryUploader stores objects in Cloudinary under their digest as public id.
type CloudinaryUploader struct {
	cld      *cloudinary.Cloudinary
	folder   string
	maxBytes int64
}

func NewCloudinaryUploader(cloudinaryURL, folder string, maxBytes int64) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	return &CloudinaryUploader{
		cld:      cld,
		folder:   folder,
		maxBytes: maxBytes,
	}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, dataURI string) (*Asset, error) {
	p, err := Decode(dataURI, u.maxBytes)
	if err != nil {
		return nil, err
	}

	resp, err := u.cld.Upload.Upload(ctx, dataURI, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: p.Digest,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpload, errors.New(resp.Error.Message))
	}
	if resp.SecureURL == "" {
		return nil, fmt.Errorf("%w: empty secure_url in response", domain.ErrUpload)
	}

	return &Asset{
		URL:         resp.SecureURL,
		ContentType: p.ContentType,
		Size:        int64(len(p.Data)),
		Digest:      p.Digest,
	}, nil
}
