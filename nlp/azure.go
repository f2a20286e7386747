package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go-reviewlens/credentials"
	"go-reviewlens/failure"
	"go-reviewlens/types"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// documentID is the id of the single document sent per call.
const documentID = "1"

// Azure calls the Azure AI Language analyze-text REST API.
type Azure struct {
	url    string
	cred   credentials.Credential
	client *http.Client
}

// NewAzure creates a client for endpoint, e.g. https://myres.cognitiveservices.azure.com/.
func NewAzure(endpoint, apiVersion string, cred credentials.Credential, client *http.Client) *Azure {
	if client == nil {
		client = http.DefaultClient
	}
	q := url.Values{}
	q.Set("api-version", apiVersion)
	return &Azure{
		url:    strings.TrimRight(endpoint, "/") + "/language/:analyze-text?" + q.Encode(),
		cred:   cred,
		client: client,
	}
}

func (a *Azure) Name() string { return "azure" }

type azureRequest struct {
	Kind          string            `json:"kind"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	AnalysisInput azureInput        `json:"analysisInput"`
}

type azureInput struct {
	Documents []azureDocument `json:"documents"`
}

type azureDocument struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type azureResponse[T any] struct {
	Kind    string `json:"kind"`
	Results struct {
		Documents    []T             `json:"documents"`
		Errors       []azureDocError `json:"errors"`
		ModelVersion string          `json:"modelVersion"`
	} `json:"results"`
}

type azureDocError struct {
	ID    string           `json:"id"`
	Error azureErrorDetail `json:"error"`
}

type azureErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	InnerError *azureErrorDetail `json:"innererror,omitempty"`
}

// innermost returns the most specific code and message.
func (d azureErrorDetail) innermost() azureErrorDetail {
	for d.InnerError != nil {
		d = *d.InnerError
	}
	return d
}

type azureErrorResponse struct {
	Error azureErrorDetail `json:"error"`
}

type azureLanguageDoc struct {
	ID               string               `json:"id"`
	DetectedLanguage types.LanguageResult `json:"detectedLanguage"`
}

type azureSentimentDoc struct {
	ID               string `json:"id"`
	Sentiment        string `json:"sentiment"`
	ConfidenceScores struct {
		Positive float64 `json:"positive"`
		Neutral  float64 `json:"neutral"`
		Negative float64 `json:"negative"`
	} `json:"confidenceScores"`
}

type azureKeyPhraseDoc struct {
	ID         string   `json:"id"`
	KeyPhrases []string `json:"keyPhrases"`
}

type azureEntityDoc struct {
	ID       string         `json:"id"`
	Entities []types.Entity `json:"entities"`
}

type azureLinkedEntityDoc struct {
	ID       string               `json:"id"`
	Entities []types.LinkedEntity `json:"entities"`
}

func (a *Azure) DetectLanguage(ctx context.Context, text string) (types.LanguageResult, error) {
	doc, err := analyzeText[azureLanguageDoc](ctx, a, OpDetectLanguage, "LanguageDetection", text, "")
	if err != nil {
		return types.LanguageResult{}, err
	}
	return doc.DetectedLanguage, nil
}

func (a *Azure) AnalyzeSentiment(ctx context.Context, text, lang string) (types.SentimentResult, error) {
	doc, err := analyzeText[azureSentimentDoc](ctx, a, OpSentiment, "SentimentAnalysis", text, lang)
	if err != nil {
		return types.SentimentResult{}, err
	}
	return types.SentimentResult{
		Label:    doc.Sentiment,
		Positive: doc.ConfidenceScores.Positive,
		Negative: doc.ConfidenceScores.Negative,
		Neutral:  doc.ConfidenceScores.Neutral,
	}, nil
}

func (a *Azure) ExtractKeyPhrases(ctx context.Context, text, lang string) (types.KeyPhraseSet, error) {
	doc, err := analyzeText[azureKeyPhraseDoc](ctx, a, OpKeyPhrases, "KeyPhraseExtraction", text, lang)
	if err != nil {
		return nil, err
	}
	return doc.KeyPhrases, nil
}

func (a *Azure) RecognizeEntities(ctx context.Context, text, lang string) (types.EntitySet, error) {
	doc, err := analyzeText[azureEntityDoc](ctx, a, OpEntities, "EntityRecognition", text, lang)
	if err != nil {
		return nil, err
	}
	return doc.Entities, nil
}

func (a *Azure) RecognizeLinkedEntities(ctx context.Context, text, lang string) (types.LinkedEntitySet, error) {
	doc, err := analyzeText[azureLinkedEntityDoc](ctx, a, OpLinkedEntities, "EntityLinking", text, lang)
	if err != nil {
		return nil, err
	}
	return doc.Entities, nil
}

// analyzeText submits one document for the given task kind and returns the
// matching result document.
func analyzeText[T any](ctx context.Context, a *Azure, op Operation, kind, text, lang string) (T, error) {
	var zero T
	opName := op.Describe()

	payload, err := json.Marshal(azureRequest{
		Kind: kind,
		AnalysisInput: azureInput{
			Documents: []azureDocument{{ID: documentID, Text: text, Language: lang}},
		},
	})
	if err != nil {
		return zero, failure.Decode(opName, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return zero, failure.Config(opName, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if err := a.cred.Authorize(req); err != nil {
		return zero, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return zero, failure.Remote(opName, 0, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return zero, failure.FromStatus(opName, resp.StatusCode, azureHTTPError(resp))
	}

	var body azureResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return zero, failure.Decode(opName, fmt.Errorf("decoding response: %w", err))
	}

	if len(body.Results.Errors) > 0 {
		docErr := body.Results.Errors[0]
		detail := docErr.Error.innermost()
		return zero, failure.Remote(opName, resp.StatusCode,
			fmt.Errorf("document %s rejected (%s): %s", docErr.ID, detail.Code, detail.Message))
	}
	if len(body.Results.Documents) == 0 {
		return zero, failure.Decode(opName, errors.New("response contained no document"))
	}
	return body.Results.Documents[0], nil
}

func azureHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body azureErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		detail := body.Error.innermost()
		return fmt.Errorf("service returned %s (%s): %s", resp.Status, detail.Code, detail.Message)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return fmt.Errorf("service returned %s", resp.Status)
	}
	return fmt.Errorf("service returned %s: %s", resp.Status, msg)
}
