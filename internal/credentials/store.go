// Package credentials reads OpenSky account credentials from a secret store.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"opensky-ingest/internal/apperr"
)

// Credentials holds either an OAuth2 client pair or a legacy username/password.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// HasClientCredentials reports whether an OAuth2 client pair is present.
func (c Credentials) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// HasBasicAuth reports whether a username/password pair is present.
func (c Credentials) HasBasicAuth() bool {
	return c.Username != "" && c.Password != ""
}

// Store resolves a secret reference into Credentials.
type Store interface {
	GetCredentials(ctx context.Context, ref string) (Credentials, error)
}

// Parse decodes a JSON secret payload. A payload with neither pair complete
// is rejected as AuthUnavailable.
func Parse(secret string) (Credentials, error) {
	var c Credentials
	if err := json.Unmarshal([]byte(secret), &c); err != nil {
		return Credentials{}, apperr.AuthUnavailable("secret is not a JSON object", err)
	}
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.Username = strings.TrimSpace(c.Username)
	if !c.HasClientCredentials() && !c.HasBasicAuth() {
		return Credentials{}, apperr.AuthUnavailable("secret has neither client_id/client_secret nor username/password", nil)
	}
	return c, nil
}

// StaticStore serves credentials supplied through configuration.
type StaticStore struct {
	Credentials Credentials
}

func (s StaticStore) GetCredentials(_ context.Context, _ string) (Credentials, error) {
	if !s.Credentials.HasClientCredentials() && !s.Credentials.HasBasicAuth() {
		return Credentials{}, apperr.AuthUnavailable("no credentials configured", nil)
	}
	return s.Credentials, nil
}

func (c Credentials) String() string {
	switch {
	case c.HasClientCredentials():
		return fmt.Sprintf("client_credentials(client_id=%s)", c.ClientID)
	case c.HasBasicAuth():
		return fmt.Sprintf("basic(username=%s)", c.Username)
	default:
		return "none"
	}
}
