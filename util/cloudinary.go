package util

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ErrImageHostDisabled is returned when an upload is attempted without
// image host credentials.
var ErrImageHostDisabled = errors.New("image hosting is not configured")

// ImageUploader stores an image and returns its public URL.
// file is anything the Cloudinary SDK accepts: a path, an io.Reader or a URL.
type ImageUploader interface {
	Upload(ctx context.Context, file interface{}, folder string) (string, error)
}

type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) (*CloudinaryUploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrImageHostDisabled
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, file interface{}, folder string) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:     uuid.NewString(),
		Folder:       folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// DisabledUploader rejects every upload; used when no image host is configured.
type DisabledUploader struct{}

func (DisabledUploader) Upload(context.Context, interface{}, string) (string, error) {
	return "", ErrImageHostDisabled
}
