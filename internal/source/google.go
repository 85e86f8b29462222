package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

// GoogleCredentials holds a service account key either inline or on disk.
type GoogleCredentials struct {
	JSON string
	File string
}

func (c GoogleCredentials) load() ([]byte, error) {
	if c.JSON != "" {
		return []byte(c.JSON), nil
	}
	if c.File != "" {
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file %s: %w", c.File, err)
		}
		return b, nil
	}
	return nil, errors.New("google service account credentials not configured")
}

// httpClient builds a JWT-authorised client for the given scopes.
func (c GoogleCredentials) httpClient(ctx context.Context, scopes ...string) (*http.Client, error) {
	raw, err := c.load()
	if err != nil {
		return nil, err
	}
	config, err := google.JWTConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}
	return config.Client(ctx), nil
}

// isNotFound reports whether a Google API error means the range or file does not exist.
func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusBadRequest
}
