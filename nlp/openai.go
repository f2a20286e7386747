package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"go-reviewlens/failure"
	"go-reviewlens/types"
)

const systemPrompt = "You are a text analytics service. You analyze exactly one document and reply with a single JSON object, nothing else."

// OpenAI runs the five analyses as JSON-mode chat completions.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the client; baseURL may be empty for the public API.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, failure.Config("create openai client", errors.New("OPENAI_API_KEY is not set"))
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) DetectLanguage(ctx context.Context, text string) (types.LanguageResult, error) {
	var out types.LanguageResult
	err := o.complete(ctx, OpDetectLanguage,
		`Identify the primary language of the document. Reply as {"name": "<English name of the language>", "iso6391Name": "<ISO 639-1 code>", "confidenceScore": <0..1>}.`,
		text, "", &out)
	if err != nil {
		return types.LanguageResult{}, err
	}
	if out.ISO6391 == "" {
		return types.LanguageResult{}, failure.Decode(OpDetectLanguage.Describe(), errors.New("reply carried no language code"))
	}
	if out.Name == "" {
		out.Name = LanguageName(out.ISO6391)
	}
	return out, nil
}

func (o *OpenAI) AnalyzeSentiment(ctx context.Context, text, lang string) (types.SentimentResult, error) {
	var out types.SentimentResult
	err := o.complete(ctx, OpSentiment,
		`Classify the overall sentiment of the document. Reply as {"sentiment": "positive|negative|neutral|mixed", "positive": <0..1>, "negative": <0..1>, "neutral": <0..1>} where the three scores sum to 1.`,
		text, lang, &out)
	if err != nil {
		return types.SentimentResult{}, err
	}
	switch out.Label {
	case types.SentimentPositive, types.SentimentNegative, types.SentimentNeutral, types.SentimentMixed:
		return out, nil
	default:
		return types.SentimentResult{}, failure.Decode(OpSentiment.Describe(), fmt.Errorf("unknown sentiment label %q", out.Label))
	}
}

func (o *OpenAI) ExtractKeyPhrases(ctx context.Context, text, lang string) (types.KeyPhraseSet, error) {
	var out struct {
		KeyPhrases []string `json:"keyPhrases"`
	}
	err := o.complete(ctx, OpKeyPhrases,
		`Extract the key phrases (short noun phrases naming the main topics) of the document. Reply as {"keyPhrases": ["..."]}; use an empty list when there are none.`,
		text, lang, &out)
	if err != nil {
		return nil, err
	}
	return out.KeyPhrases, nil
}

func (o *OpenAI) RecognizeEntities(ctx context.Context, text, lang string) (types.EntitySet, error) {
	var out struct {
		Entities []types.Entity `json:"entities"`
	}
	err := o.complete(ctx, OpEntities,
		`Recognize named entities in the document. Reply as {"entities": [{"text": "<text as written>", "category": "<one of Person, PersonType, Location, Organization, Event, Product, Skill, Address, PhoneNumber, Email, URL, IP, DateTime, Quantity>"}]}.`,
		text, lang, &out)
	if err != nil {
		return nil, err
	}
	return out.Entities, nil
}

func (o *OpenAI) RecognizeLinkedEntities(ctx context.Context, text, lang string) (types.LinkedEntitySet, error) {
	var out struct {
		Entities []types.LinkedEntity `json:"entities"`
	}
	err := o.complete(ctx, OpLinkedEntities,
		`Link well-known entities in the document to their English Wikipedia article. Reply as {"entities": [{"name": "<article title>", "url": "https://en.wikipedia.org/wiki/...", "dataSource": "Wikipedia"}]}; only include entities whose article you are sure exists.`,
		text, lang, &out)
	if err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// complete sends one chat completion and decodes the JSON reply into out.
func (o *OpenAI) complete(ctx context.Context, op Operation, instruction, text, lang string, out interface{}) error {
	opName := op.Describe()

	user := instruction + "\n\nDocument:\n" + text
	if lang != "" {
		user = fmt.Sprintf("%s\n\nThe document language is %q.\n\nDocument:\n%s", instruction, lang, text)
	}

	seed := 0
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Seed: &seed,
	})
	if err != nil {
		return openAIFailure(opName, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return failure.Decode(opName, errors.New("openai returned empty response or choices"))
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return failure.Decode(opName, fmt.Errorf("decoding reply: %w", err))
	}
	return nil
}

func openAIFailure(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return failure.FromStatus(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return failure.FromStatus(op, reqErr.HTTPStatusCode, err)
	}
	return failure.Remote(op, 0, err)
}
