// Package auth exchanges OpenSky credentials for request authorization.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/credentials"
	"opensky-ingest/pkg/logger"
)

// DefaultTokenURL is the OpenSky Keycloak token endpoint.
const DefaultTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"

// Authorization is applied to every states request.
type Authorization struct {
	bearer   string
	username string
	password string
}

// Bearer returns an Authorization carrying an access token.
func Bearer(token string) Authorization {
	return Authorization{bearer: token}
}

// Basic returns an Authorization using HTTP basic credentials.
func Basic(username, password string) Authorization {
	return Authorization{username: username, password: password}
}

// Apply sets the Authorization header on req.
func (a Authorization) Apply(req *http.Request) {
	switch {
	case a.bearer != "":
		req.Header.Set("Authorization", "Bearer "+a.bearer)
	case a.username != "":
		req.SetBasicAuth(a.username, a.password)
	}
}

// Scheme returns "bearer", "basic" or "" when nothing is set.
func (a Authorization) Scheme() string {
	switch {
	case a.bearer != "":
		return "bearer"
	case a.username != "":
		return "basic"
	default:
		return ""
	}
}

// Provider performs one client-credentials exchange per call. It never caches.
type Provider struct {
	tokenURL   string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewProvider(tokenURL string, timeout time.Duration, log *logger.Logger) *Provider {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &Provider{
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithComponent("auth"),
	}
}

// AcquireToken returns the Authorization for creds. Client credentials cost
// one POST to the token endpoint; a username/password pair needs no call.
func (p *Provider) AcquireToken(ctx context.Context, creds credentials.Credentials) (Authorization, error) {
	switch {
	case creds.HasClientCredentials():
		return p.exchange(ctx, creds)
	case creds.HasBasicAuth():
		p.logger.Info("Using basic authentication", logger.Fields("username", creds.Username))
		return Basic(creds.Username, creds.Password), nil
	default:
		return Authorization{}, apperr.AuthUnavailable("credentials are incomplete", nil)
	}
}

func (p *Provider) exchange(ctx context.Context, creds credentials.Credentials) (Authorization, error) {
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     p.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	start := time.Now()
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			p.logger.Error("Token endpoint rejected credentials", logger.Fields("status", re.Response.StatusCode))
			return Authorization{}, apperr.AuthRejected(fmt.Sprintf("token endpoint returned %d", re.Response.StatusCode), err)
		}
		p.logger.Error("Failed to obtain access token", logger.ErrorFields(err))
		return Authorization{}, apperr.AuthRejected("token exchange failed", err)
	}
	if tok.AccessToken == "" {
		p.logger.Error("Token response has no access_token")
		return Authorization{}, apperr.AuthRejected("empty access_token", nil)
	}

	p.logger.Info("Obtained OpenSky access token", logger.Fields(
		"client_id", creds.ClientID,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return Bearer(tok.AccessToken), nil
}
