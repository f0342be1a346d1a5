// Package cloudinary uploads dataset artifacts as raw Cloudinary assets.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Uploader stores dataset files in Cloudinary.
type Uploader struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an uploader.
func New(cfg Config, logger zerolog.Logger) (*Uploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Uploader{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the artifact as a raw asset and returns its secure URL. Existing assets with the same name are replaced.
func (u *Uploader) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	detected, body, err := sniff(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	params := uploader.UploadParams{
		Folder:       u.folder,
		PublicID:     buildPublicID(name, u.now()),
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
		Tags:         []string{"forge", "dataset"},
	}

	result, err := u.client.Upload.Upload(ctx, body, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected artifact: %s", result.Error.Message)
	}

	u.logger.Info().
		Str("public_id", result.PublicID).
		Str("mime", detected).
		Int("bytes", result.Bytes).
		Msg("artifact uploaded to cloudinary")

	return result.SecureURL, nil
}

// sniff detects the content type without consuming the reader.
func sniff(reader io.Reader) (string, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(strings.NewReader(string(head)), reader), nil
}

// buildPublicID keeps the extension because raw assets are served by their full public id.
func buildPublicID(name string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("artifact-%d", now.Unix())
	}

	return base + ext
}
