package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/rsakamoto/mediaimport/internal/domain"
)

// Credentials selects how the Drive service authenticates. An API key is
// enough for publicly shared folders; OAuth client credentials plus a
// previously obtained token grant access to private ones.
type Credentials struct {
	APIKey string

	ClientID     string
	ClientSecret string
	TokenPath    string
}

// NewService builds a Drive service from the configured credentials.
// OAuth wins over the API key when both are present. Returns
// domain.ErrMissingCredentials when neither is configured.
func NewService(ctx context.Context, creds Credentials) (*drive.Service, error) {
	if creds.ClientID != "" && creds.ClientSecret != "" {
		token, err := loadToken(creds.TokenPath)
		if err != nil {
			return nil, err
		}
		config := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Scopes:       []string{drive.DriveReadonlyScope},
			Endpoint:     google.Endpoint,
		}
		client := config.Client(ctx, token)
		service, err := drive.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("failed to create Drive service: %w", err)
		}
		return service, nil
	}

	if creds.APIKey != "" {
		service, err := drive.NewService(ctx, option.WithAPIKey(creds.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Drive service: %w", err)
		}
		return service, nil
	}

	return nil, domain.ErrMissingCredentials
}

// loadToken reads a cached OAuth2 token from disk.
func loadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: token path not configured", domain.ErrMissingCredentials)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingCredentials, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return &token, nil
}
