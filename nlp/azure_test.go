package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reviewlens/credentials"
	"go-reviewlens/failure"
	"go-reviewlens/types"
)

type staticKey string

func (k staticKey) Authorize(req *http.Request) error {
	req.Header.Set("Ocp-Apim-Subscription-Key", string(k))
	return nil
}

func (k staticKey) Source() string { return "test" }

var _ credentials.Credential = staticKey("")

// azureServer answers analyze-text requests with the body registered for the
// request kind.
func azureServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/language/:analyze-text", r.URL.Path)
		assert.Equal(t, "2023-04-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		var req azureRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if assert.Len(t, req.AnalysisInput.Documents, 1) {
			assert.Equal(t, documentID, req.AnalysisInput.Documents[0].ID)
		}

		body, ok := bodies[req.Kind]
		if !ok {
			t.Errorf("unexpected kind %q", req.Kind)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAzure_AllOperations(t *testing.T) {
	srv := azureServer(t, map[string]string{
		"LanguageDetection": `{"kind":"LanguageDetectionResults","results":{"documents":[{"id":"1","detectedLanguage":{"name":"English","iso6391Name":"en","confidenceScore":1.0},"warnings":[]}],"errors":[],"modelVersion":"2022-10-01"}}`,
		"SentimentAnalysis": `{"kind":"SentimentAnalysisResults","results":{"documents":[{"id":"1","sentiment":"positive","confidenceScores":{"positive":0.98,"neutral":0.01,"negative":0.01},"sentences":[]}],"errors":[]}}`,
		"KeyPhraseExtraction": `{"kind":"KeyPhraseExtractionResults","results":{"documents":[{"id":"1","keyPhrases":["Hotel","great stay"]}],"errors":[]}}`,
		"EntityRecognition": `{"kind":"EntityRecognitionResults","results":{"documents":[{"id":"1","entities":[{"text":"Seattle","category":"Location","subcategory":"City","offset":10,"length":7,"confidenceScore":0.99}]}],"errors":[]}}`,
		"EntityLinking": `{"kind":"EntityLinkingResults","results":{"documents":[{"id":"1","entities":[{"name":"Seattle","matches":[],"language":"en","id":"Seattle","url":"https://en.wikipedia.org/wiki/Seattle","dataSource":"Wikipedia"}]}],"errors":[]}}`,
	})
	a := NewAzure(srv.URL+"/", "2023-04-01", staticKey("test-key"), srv.Client())
	ctx := context.Background()

	lang, err := a.DetectLanguage(ctx, "This is great.")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageResult{Name: "English", ISO6391: "en", Confidence: 1.0}, lang)

	sent, err := a.AnalyzeSentiment(ctx, "This is great.", "en")
	require.NoError(t, err)
	assert.Equal(t, types.SentimentResult{Label: "positive", Positive: 0.98, Negative: 0.01, Neutral: 0.01}, sent)

	phrases, err := a.ExtractKeyPhrases(ctx, "This is great.", "en")
	require.NoError(t, err)
	assert.Equal(t, types.KeyPhraseSet{"Hotel", "great stay"}, phrases)

	entities, err := a.RecognizeEntities(ctx, "This is great.", "en")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Seattle", entities[0].Text)
	assert.Equal(t, "Location", entities[0].Category)
	assert.Equal(t, "City", entities[0].Subcategory)

	linked, err := a.RecognizeLinkedEntities(ctx, "This is great.", "en")
	require.NoError(t, err)
	assert.Equal(t, types.LinkedEntitySet{{Name: "Seattle", URL: "https://en.wikipedia.org/wiki/Seattle", DataSource: "Wikipedia"}}, linked)
}

func TestAzure_SendsLanguageHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req azureRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.AnalysisInput.Documents, 1) {
			assert.Equal(t, "fr", req.AnalysisInput.Documents[0].Language)
		}
		w.Write([]byte(`{"results":{"documents":[{"id":"1","keyPhrases":[]}]}}`))
	}))
	defer srv.Close()

	a := NewAzure(srv.URL, "2023-04-01", staticKey("k"), srv.Client())
	phrases, err := a.ExtractKeyPhrases(context.Background(), "C'est super.", "fr")
	require.NoError(t, err)
	assert.Empty(t, phrases)
}

func TestAzure_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  failure.Kind
		transient bool
		contains  string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`,
			wantKind: failure.KindAuth,
			contains: "invalid subscription key",
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"code":"429","message":"Rate limit is exceeded."}}`,
			wantKind:  failure.KindRemote,
			transient: true,
			contains:  "Rate limit",
		},
		{
			name:     "bad request with inner error",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":"InvalidRequest","message":"Invalid Request.","innererror":{"code":"UnsupportedLanguageCode","message":"Invalid language code 'xx'."}}}`,
			wantKind: failure.KindRemote,
			contains: "UnsupportedLanguageCode",
		},
		{
			name:      "server error without body",
			status:    http.StatusBadGateway,
			body:      ``,
			wantKind:  failure.KindRemote,
			transient: true,
			contains:  "502",
		},
		{
			name:     "document error",
			status:   http.StatusOK,
			body:     `{"results":{"documents":[],"errors":[{"id":"1","error":{"code":"InvalidArgument","message":"Invalid document in request.","innererror":{"code":"InvalidDocument","message":"Document text is empty."}}}]}}`,
			wantKind: failure.KindRemote,
			contains: "Document text is empty.",
		},
		{
			name:     "malformed body",
			status:   http.StatusOK,
			body:     `{"results":`,
			wantKind: failure.KindDecode,
			contains: "decoding response",
		},
		{
			name:     "no document",
			status:   http.StatusOK,
			body:     `{"results":{"documents":[],"errors":[]}}`,
			wantKind: failure.KindDecode,
			contains: "no document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewAzure(srv.URL, "2023-04-01", staticKey("k"), srv.Client())
			_, err := a.RecognizeEntities(context.Background(), "text", "en")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			assert.Equal(t, tt.transient, failure.IsTransient(err))
			assert.Contains(t, err.Error(), tt.contains)
			assert.Contains(t, err.Error(), "entity recognition")
		})
	}
}

func TestAzure_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	a := NewAzure(url, "2023-04-01", staticKey("k"), nil)
	_, err := a.DetectLanguage(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, failure.KindRemote, failure.KindOf(err))
	assert.True(t, failure.IsTransient(err))
}
