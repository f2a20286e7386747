package credentials

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"go-reviewlens/failure"
)

// tokenCredential attaches a bearer token, refreshing it through the source.
type tokenCredential struct {
	source string
	ts     oauth2.TokenSource
}

func (c *tokenCredential) Authorize(req *http.Request) error {
	tok, err := c.ts.Token()
	if err != nil {
		return failure.Auth("acquire token", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

func (c *tokenCredential) Source() string { return c.source }

// newTokenCredential fetches one token up front so a broken provider fails
// inside Resolve rather than on the first request.
func newTokenCredential(source string, ts oauth2.TokenSource) (Credential, error) {
	ts = oauth2.ReuseTokenSource(nil, ts)
	if _, err := ts.Token(); err != nil {
		return nil, err
	}
	return &tokenCredential{source: source, ts: ts}, nil
}

func tenantURL(authorityHost, tenantID, path string) string {
	host := strings.TrimRight(authorityHost, "/")
	if host == "" {
		host = "https://login.microsoftonline.com"
	}
	return host + "/" + tenantID + "/oauth2/v2.0/" + path
}

// ClientSecret authorizes as a service principal with the OAuth2 client
// credentials grant.
type ClientSecret struct {
	AuthorityHost string
	TenantID      string
	ClientID      string
	Secret        string
}

func (p *ClientSecret) Name() string { return "client secret" }

func (p *ClientSecret) Credential(ctx context.Context) (Credential, error) {
	if p.TenantID == "" || p.ClientID == "" || p.Secret == "" {
		return nil, ErrNotConfigured
	}
	cfg := &clientcredentials.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.Secret,
		TokenURL:     tenantURL(p.AuthorityHost, p.TenantID, "token"),
		Scopes:       []string{CognitiveServicesScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return newTokenCredential(p.Name(), cfg.TokenSource(ctx))
}
