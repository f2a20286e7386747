package credentials

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/oauth2"
)

// azureCLIClientID is the public client registered for the Azure CLI; it is
// allowed to run the device-code flow against any tenant.
const azureCLIClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

// DeviceCode is the interactive fallback: the user signs in from a browser
// with a one-time code.
type DeviceCode struct {
	Enabled       bool
	AuthorityHost string
	TenantID      string
	ClientID      string
	Prompt        io.Writer
}

func (p *DeviceCode) Name() string { return "device code" }

func (p *DeviceCode) Credential(ctx context.Context) (Credential, error) {
	if !p.Enabled {
		return nil, ErrNotConfigured
	}
	tenant := p.TenantID
	if tenant == "" {
		tenant = "organizations"
	}
	clientID := p.ClientID
	if clientID == "" {
		clientID = azureCLIClientID
	}
	prompt := p.Prompt
	if prompt == nil {
		prompt = os.Stderr
	}

	cfg := &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: tenantURL(p.AuthorityHost, tenant, "devicecode"),
			TokenURL:      tenantURL(p.AuthorityHost, tenant, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		Scopes: []string{CognitiveServicesScope, "offline_access"},
	}

	auth, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("start device login: %w", err)
	}
	fmt.Fprintf(prompt, "To sign in, open %s and enter the code %s\n", auth.VerificationURI, auth.UserCode)

	tok, err := cfg.DeviceAccessToken(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("complete device login: %w", err)
	}
	return &tokenCredential{source: p.Name(), ts: cfg.TokenSource(ctx, tok)}, nil
}
