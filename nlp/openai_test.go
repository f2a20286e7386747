package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reviewlens/failure"
	"go-reviewlens/types"
)

// openAIServer replies to every chat completion with content chosen by the
// first matching substring of the user prompt.
func openAIServer(t *testing.T, replies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if assert.NotNil(t, req.ResponseFormat) {
			assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
		}
		user := req.Messages[len(req.Messages)-1].Content

		content := ""
		for key, reply := range replies {
			if strings.Contains(user, key) {
				content = reply
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_AllOperations(t *testing.T) {
	srv := openAIServer(t, map[string]string{
		"primary language":  `{"name":"English","iso6391Name":"en","confidenceScore":0.99}`,
		"overall sentiment": `{"sentiment":"negative","positive":0.05,"negative":0.9,"neutral":0.05}`,
		"key phrases":       `{"keyPhrases":["cold room","rude staff"]}`,
		"named entities":    `{"entities":[{"text":"Contoso","category":"Organization"}]}`,
		"Wikipedia":         `{"entities":[{"name":"London","url":"https://en.wikipedia.org/wiki/London","dataSource":"Wikipedia"}]}`,
	})
	o, err := NewOpenAI("test-key", "gpt-4o-mini", srv.URL+"/v1")
	require.NoError(t, err)
	ctx := context.Background()

	lang, err := o.DetectLanguage(ctx, "The room was cold.")
	require.NoError(t, err)
	assert.Equal(t, "en", lang.ISO6391)
	assert.Equal(t, "English", lang.Name)

	sent, err := o.AnalyzeSentiment(ctx, "The room was cold.", "en")
	require.NoError(t, err)
	assert.Equal(t, types.SentimentResult{Label: "negative", Positive: 0.05, Negative: 0.9, Neutral: 0.05}, sent)

	phrases, err := o.ExtractKeyPhrases(ctx, "The room was cold.", "en")
	require.NoError(t, err)
	assert.Equal(t, types.KeyPhraseSet{"cold room", "rude staff"}, phrases)

	entities, err := o.RecognizeEntities(ctx, "The room was cold.", "en")
	require.NoError(t, err)
	assert.Equal(t, types.EntitySet{{Text: "Contoso", Category: "Organization"}}, entities)

	linked, err := o.RecognizeLinkedEntities(ctx, "The room was cold.", "en")
	require.NoError(t, err)
	assert.Equal(t, "https://en.wikipedia.org/wiki/London", linked[0].URL)
}

func TestOpenAI_BadReplies(t *testing.T) {
	srv := openAIServer(t, map[string]string{
		"primary language":  `{"name":"English"}`,
		"overall sentiment": `{"sentiment":"ecstatic"}`,
		"key phrases":       `not json`,
	})
	o, err := NewOpenAI("test-key", "gpt-4o-mini", srv.URL+"/v1")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = o.DetectLanguage(ctx, "x")
	assert.Equal(t, failure.KindDecode, failure.KindOf(err))

	_, err = o.AnalyzeSentiment(ctx, "x", "en")
	assert.Equal(t, failure.KindDecode, failure.KindOf(err))

	_, err = o.ExtractKeyPhrases(ctx, "x", "en")
	assert.Equal(t, failure.KindDecode, failure.KindOf(err))

	// no reply registered: empty content
	_, err = o.RecognizeEntities(ctx, "x", "en")
	assert.Equal(t, failure.KindDecode, failure.KindOf(err))
}

func TestOpenAI_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   failure.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, failure.KindAuth},
		{"rate limited", http.StatusTooManyRequests, failure.KindRemote},
		{"server error", http.StatusInternalServerError, failure.KindRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			o, err := NewOpenAI("test-key", "gpt-4o-mini", srv.URL+"/v1")
			require.NoError(t, err)
			_, err = o.RecognizeEntities(context.Background(), "x", "en")
			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.KindOf(err))
		})
	}
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	_, err := NewOpenAI("", "gpt-4o-mini", "")
	assert.Equal(t, failure.KindConfig, failure.KindOf(err))
}
