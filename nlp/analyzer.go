// Package nlp talks to the remote text-analysis service.
//
// Every provider implements Analyzer: one document per call, five independent
// operations. Providers never retry; errors come back as *failure.Error so the
// caller can tell configuration, auth, remote and decode problems apart.
package nlp

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"go-reviewlens/config"
	"go-reviewlens/credentials"
	"go-reviewlens/failure"
	"go-reviewlens/types"
)

// Operation identifies one of the five remote calls.
type Operation string

const (
	OpDetectLanguage Operation = "detect_language"
	OpSentiment      Operation = "sentiment"
	OpKeyPhrases     Operation = "key_phrases"
	OpEntities       Operation = "entities"
	OpLinkedEntities Operation = "linked_entities"
)

// Describe returns the human-readable name used in error messages.
func (o Operation) Describe() string {
	switch o {
	case OpDetectLanguage:
		return "language detection"
	case OpSentiment:
		return "sentiment analysis"
	case OpKeyPhrases:
		return "key phrase extraction"
	case OpEntities:
		return "entity recognition"
	case OpLinkedEntities:
		return "entity linking"
	default:
		return string(o)
	}
}

// Analyzer is the remote text-analysis service.
type Analyzer interface {
	Name() string
	DetectLanguage(ctx context.Context, text string) (types.LanguageResult, error)
	AnalyzeSentiment(ctx context.Context, text, lang string) (types.SentimentResult, error)
	ExtractKeyPhrases(ctx context.Context, text, lang string) (types.KeyPhraseSet, error)
	RecognizeEntities(ctx context.Context, text, lang string) (types.EntitySet, error)
	RecognizeLinkedEntities(ctx context.Context, text, lang string) (types.LinkedEntitySet, error)
}

// Options carries collaborators the providers may need.
type Options struct {
	Logger *logrus.Logger
	// Prompt receives interactive sign-in instructions.
	Prompt io.Writer
	// HTTPClient is used by the REST providers; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// New creates the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.Config, opts Options) (Analyzer, error) {
	switch cfg.Provider {
	case config.ProviderAzure:
		chain := credentials.DefaultChain(credentials.Settings{
			Key:                     cfg.Azure.Key,
			AuthorityHost:           cfg.Azure.AuthorityHost,
			TenantID:                cfg.Azure.TenantID,
			ClientID:                cfg.Azure.ClientID,
			ClientSecret:            cfg.Azure.ClientSecret,
			ManagedIdentityClientID: cfg.Azure.ManagedIdentityClientID,
			IMDSEndpoint:            cfg.Azure.IMDSEndpoint,
			DisableCLI:              cfg.Azure.DisableCLI,
			Interactive:             cfg.Azure.Interactive,
			Prompt:                  opts.Prompt,
		})
		cred, err := credentials.Resolve(ctx, chain...)
		if err != nil {
			return nil, err
		}
		if opts.Logger != nil {
			opts.Logger.WithField("credential", cred.Source()).Debug("resolved credential")
		}
		return NewAzure(cfg.Azure.Endpoint, cfg.Azure.APIVersion, cred, opts.HTTPClient), nil
	case config.ProviderGoogle:
		return NewGoogle(ctx, cfg.Google.CredentialsB64)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case config.ProviderReplay:
		return LoadReplay(cfg.ReplayFixture)
	default:
		return nil, failure.Config("create analyzer", fmt.Errorf("unknown provider: %s", cfg.Provider))
	}
}

// Close releases the analyzer's connections if it holds any.
func Close(a Analyzer) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
