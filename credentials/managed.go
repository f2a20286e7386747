package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const defaultIMDSEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

// ManagedIdentity asks the instance metadata service for a token. Off Azure
// the probe fails fast and the chain moves on.
type ManagedIdentity struct {
	Endpoint string
	// ClientID selects a user-assigned identity; empty uses the system identity.
	ClientID string
	Client   *http.Client
}

func (p *ManagedIdentity) Name() string { return "managed identity" }

func (p *ManagedIdentity) Credential(ctx context.Context) (Credential, error) {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = defaultIMDSEndpoint
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	return newTokenCredential(p.Name(), &imdsTokenSource{
		ctx:      ctx,
		endpoint: endpoint,
		clientID: p.ClientID,
		client:   client,
	})
}

type imdsTokenSource struct {
	ctx      context.Context
	endpoint string
	clientID string
	client   *http.Client
}

type imdsToken struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresOn   json.Number `json:"expires_on"`
}

func (s *imdsTokenSource) Token() (*oauth2.Token, error) {
	q := url.Values{}
	q.Set("api-version", "2018-02-01")
	q.Set("resource", CognitiveServicesResource)
	if s.clientID != "" {
		q.Set("client_id", s.clientID)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Metadata", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imds request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imds returned status: %s", resp.Status)
	}

	var body imdsToken
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode imds token: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("imds returned an empty token")
	}

	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Expiry:      unixExpiry(body.ExpiresOn.String()),
	}, nil
}

// unixExpiry parses epoch seconds; an unparsable value yields a zero expiry,
// which oauth2 treats as never expiring.
func unixExpiry(v string) time.Time {
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
