package mediasvc

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
)

const uploadTimeout = 30 * time.Second

type cloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	prefix string
}

var _ core.MediaStorage = (*cloudinaryStorage)(nil)

func NewCloudinaryStorage(conf *core.Config) (core.MediaStorage, error) {
	cld, err := cloudinary.NewFromURL(conf.CloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "configuring cloudinary")
	}
	return &cloudinaryStorage{cld: cld, prefix: strings.ToLower(conf.AppName)}, nil
}

// Save uploads the file and returns its public https URL.
func (s *cloudinaryStorage) Save(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   path.Join(s.prefix, folder),
		PublicID: strings.TrimSuffix(name, path.Ext(name)),
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading to cloudinary")
	}
	if res.Error.Message != "" {
		return "", errors.Errorf("uploading to cloudinary: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// NewStorage picks Cloudinary when it is configured and the local filesystem otherwise.
func NewStorage(conf *core.Config) (core.MediaStorage, error) {
	if conf.CloudinaryURL != "" {
		return NewCloudinaryStorage(conf)
	}
	return NewLocalStorage(conf), nil
}
