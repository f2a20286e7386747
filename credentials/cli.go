package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/oauth2"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return nil, fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return out, err
}

// AzureCLI reuses the developer's `az login` session.
type AzureCLI struct {
	Run CommandRunner
}

func (p *AzureCLI) Name() string { return "azure cli" }

func (p *AzureCLI) Credential(ctx context.Context) (Credential, error) {
	run := p.Run
	if run == nil {
		run = execRunner
	}
	return newTokenCredential(p.Name(), &cliTokenSource{ctx: ctx, run: run})
}

type cliTokenSource struct {
	ctx context.Context
	run CommandRunner
}

type cliToken struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresOn   int64  `json:"expires_on"`
}

func (s *cliTokenSource) Token() (*oauth2.Token, error) {
	out, err := s.run(s.ctx, "az", "account", "get-access-token",
		"--resource", CognitiveServicesResource, "--output", "json")
	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("az account get-access-token: %w", err)
	}

	var tok cliToken
	if err := json.Unmarshal(out, &tok); err != nil {
		return nil, fmt.Errorf("decode az token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("az returned an empty token")
	}

	t := &oauth2.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if tok.ExpiresOn > 0 {
		t.Expiry = unixExpiry(fmt.Sprint(tok.ExpiresOn))
	}
	return t, nil
}
