package nlp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-reviewlens/failure"
	"go-reviewlens/types"
)

// Fixture is the YAML document served by the replay provider.
//
//	documents:
//	  - text: "This is great."
//	    language: {name: English, iso6391: en}
//	    sentiment: {label: positive, positive: 0.98, negative: 0.01, neutral: 0.01}
//	    keyPhrases: [great]
//	    failures: {entities: "network is unreachable"}
type Fixture struct {
	Documents []FixtureDocument `yaml:"documents"`
}

// FixtureDocument holds the canned results for one review text.
type FixtureDocument struct {
	Text           string                `yaml:"text"`
	Language       types.LanguageResult  `yaml:"language"`
	Sentiment      types.SentimentResult `yaml:"sentiment"`
	KeyPhrases     types.KeyPhraseSet    `yaml:"keyPhrases"`
	Entities       types.EntitySet       `yaml:"entities"`
	LinkedEntities types.LinkedEntitySet `yaml:"linkedEntities"`
	// Failures maps an operation name (see Operation) to the error it returns.
	Failures map[Operation]string `yaml:"failures"`
}

// Replay answers from a fixture, matching documents by their trimmed text.
// It is deterministic and never touches the network.
type Replay struct {
	docs map[string]FixtureDocument
}

// LoadReplay reads a fixture file.
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Config("load replay fixture", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, failure.Config("load replay fixture", fmt.Errorf("%s: %w", path, err))
	}
	return NewReplay(fx), nil
}

// NewReplay builds the provider from an in-memory fixture.
func NewReplay(fx Fixture) *Replay {
	r := &Replay{docs: make(map[string]FixtureDocument, len(fx.Documents))}
	for _, d := range fx.Documents {
		r.docs[strings.TrimSpace(d.Text)] = d
	}
	return r
}

func (r *Replay) Name() string { return "replay" }

func (r *Replay) lookup(ctx context.Context, op Operation, text string) (FixtureDocument, error) {
	if err := ctx.Err(); err != nil {
		return FixtureDocument{}, failure.Remote(op.Describe(), 0, err)
	}
	doc, ok := r.docs[strings.TrimSpace(text)]
	if !ok {
		return FixtureDocument{}, failure.Remote(op.Describe(), http.StatusNotFound, errors.New("no fixture for document"))
	}
	if msg, ok := doc.Failures[op]; ok {
		return FixtureDocument{}, failure.Remote(op.Describe(), 0, errors.New(msg))
	}
	return doc, nil
}

func (r *Replay) DetectLanguage(ctx context.Context, text string) (types.LanguageResult, error) {
	doc, err := r.lookup(ctx, OpDetectLanguage, text)
	if err != nil {
		return types.LanguageResult{}, err
	}
	return doc.Language, nil
}

func (r *Replay) AnalyzeSentiment(ctx context.Context, text, _ string) (types.SentimentResult, error) {
	doc, err := r.lookup(ctx, OpSentiment, text)
	if err != nil {
		return types.SentimentResult{}, err
	}
	return doc.Sentiment, nil
}

func (r *Replay) ExtractKeyPhrases(ctx context.Context, text, _ string) (types.KeyPhraseSet, error) {
	doc, err := r.lookup(ctx, OpKeyPhrases, text)
	if err != nil {
		return nil, err
	}
	return doc.KeyPhrases, nil
}

func (r *Replay) RecognizeEntities(ctx context.Context, text, _ string) (types.EntitySet, error) {
	doc, err := r.lookup(ctx, OpEntities, text)
	if err != nil {
		return nil, err
	}
	return doc.Entities, nil
}

func (r *Replay) RecognizeLinkedEntities(ctx context.Context, text, _ string) (types.LinkedEntitySet, error) {
	doc, err := r.lookup(ctx, OpLinkedEntities, text)
	if err != nil {
		return nil, err
	}
	return doc.LinkedEntities, nil
}
