// Package credentials resolves how requests to the text-analysis service are
// authorized.
//
// A chain is an explicit ordered list of providers. Resolve asks each one in
// turn and returns the first credential obtained; nothing here reads the
// environment, every input arrives through Settings.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-reviewlens/failure"
)

// CognitiveServicesScope is the OAuth2 scope for Azure AI services.
const (
	CognitiveServicesScope    = "https://cognitiveservices.azure.com/.default"
	CognitiveServicesResource = "https://cognitiveservices.azure.com"
)

// ErrNotConfigured is returned by a provider whose inputs are absent.
var ErrNotConfigured = errors.New("not configured")

// Credential authorizes an outgoing HTTP request.
type Credential interface {
	Authorize(req *http.Request) error
	// Source names the provider that produced the credential.
	Source() string
}

// Provider is one authentication strategy in the chain.
type Provider interface {
	Name() string
	Credential(ctx context.Context) (Credential, error)
}

// Settings carries every input the default chain needs.
type Settings struct {
	Key                     string
	AuthorityHost           string
	TenantID                string
	ClientID                string
	ClientSecret            string
	ManagedIdentityClientID string
	IMDSEndpoint            string
	DisableCLI              bool
	Interactive             bool
	// Prompt receives the device-code sign-in instructions.
	Prompt io.Writer
}

// DefaultChain returns the providers in priority order: explicit key, client
// secret, managed identity, Azure CLI login and the interactive device-code flow.
func DefaultChain(s Settings) []Provider {
	chain := []Provider{
		&APIKey{Key: s.Key},
		&ClientSecret{
			AuthorityHost: s.AuthorityHost,
			TenantID:      s.TenantID,
			ClientID:      s.ClientID,
			Secret:        s.ClientSecret,
		},
		&ManagedIdentity{
			Endpoint: s.IMDSEndpoint,
			ClientID: s.ManagedIdentityClientID,
		},
	}
	if !s.DisableCLI {
		chain = append(chain, &AzureCLI{})
	}
	chain = append(chain, &DeviceCode{
		Enabled:       s.Interactive,
		AuthorityHost: s.AuthorityHost,
		TenantID:      s.TenantID,
		Prompt:        s.Prompt,
	})
	return chain
}

// Resolve tries providers in order and returns the first credential. When
// every provider fails the returned auth error lists each attempt.
func Resolve(ctx context.Context, providers ...Provider) (Credential, error) {
	if len(providers) == 0 {
		return nil, failure.Auth("resolve credential", errors.New("empty credential chain"))
	}

	attempts := make([]string, 0, len(providers))
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return nil, failure.Auth("resolve credential", err)
		}

		cred, err := p.Credential(ctx)
		if err == nil {
			return cred, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", p.Name(), err))
	}

	return nil, failure.Auth("resolve credential",
		fmt.Errorf("credential chain exhausted (%s)", strings.Join(attempts, "; ")))
}

// APIKey authorizes with a resource key.
type APIKey struct {
	Key string
}

func (p *APIKey) Name() string { return "api key" }

func (p *APIKey) Credential(context.Context) (Credential, error) {
	if p.Key == "" {
		return nil, ErrNotConfigured
	}
	return keyCredential(p.Key), nil
}

type keyCredential string

func (k keyCredential) Authorize(req *http.Request) error {
	req.Header.Set("Ocp-Apim-Subscription-Key", string(k))
	return nil
}

func (k keyCredential) Source() string { return "api key" }
