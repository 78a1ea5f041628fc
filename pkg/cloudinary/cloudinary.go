// Package cloudinary deletes post media that moderation has removed.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Destroy outcomes reported by the upload API that count as success.
const (
	resultOK       = "ok"
	resultNotFound = "not found"
)

// ErrMissingCredentials is returned by New when any credential is blank.
var ErrMissingCredentials = errors.New("cloudinary credentials must be provided")

// Config holds the account credentials. UploadPrefix overrides the API host and
// is empty in production.
type Config struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPrefix string
}

// Service is the blob store handed to the report service.
type Service struct {
	client *cloudinary.Cloudinary
	logger zerolog.Logger
}

// New validates credentials and builds the client. It performs no network call.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	if cfg.UploadPrefix != "" {
		client.Config.API.UploadPrefix = strings.TrimRight(cfg.UploadPrefix, "/")
	}

	return &Service{
		client: client,
		logger: logger.With().Str("component", "blob_store").Str("cloud", cfg.CloudName).Logger(),
	}, nil
}

// Destroy removes an asset and invalidates CDN copies. An asset that is
// already gone counts as removed; a blank public id is a no-op.
func (s *Service) Destroy(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil
	}

	res, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   publicID,
		Invalidate: api.Bool(true),
	})
	switch {
	case err != nil:
		return fmt.Errorf("destroy %s: %w", publicID, err)
	case res.Error.Message != "":
		return fmt.Errorf("destroy %s: %s", publicID, res.Error.Message)
	case res.Result != resultOK && res.Result != resultNotFound:
		return fmt.Errorf("destroy %s: unexpected result %q", publicID, res.Result)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", res.Result).Msg("blob destroyed")
	return nil
}
