package nlp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	language "cloud.google.com/go/language/apiv2"
	"cloud.google.com/go/language/apiv2/languagepb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-reviewlens/failure"
	"go-reviewlens/types"
)

// Thresholds for turning a Cloud Natural Language score in [-1,1] into a label.
const (
	sentimentThreshold = 0.25
	mixedMagnitude     = 2.0
)

// languageAPI is the part of *language.Client used here.
type languageAPI interface {
	AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest, opts ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error)
	AnalyzeEntities(ctx context.Context, req *languagepb.AnalyzeEntitiesRequest, opts ...gax.CallOption) (*languagepb.AnalyzeEntitiesResponse, error)
	Close() error
}

// Google calls the Cloud Natural Language API.
type Google struct {
	client languageAPI
}

// NewGoogle creates the client. encodedCreds is a base64 service account JSON;
// when empty, application default credentials are used.
func NewGoogle(ctx context.Context, encodedCreds string) (*Google, error) {
	var opts []option.ClientOption
	if encodedCreds != "" {
		creds, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, failure.Config("create google client", fmt.Errorf("decode NATURAL_LANGUAGE_CREDENTIALS: %w", err))
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	client, err := language.NewClient(ctx, opts...)
	if err != nil {
		return nil, failure.Auth("create google client", err)
	}
	return &Google{client: client}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Close() error { return g.client.Close() }

func document(text, lang string) *languagepb.Document {
	return &languagepb.Document{
		Source: &languagepb.Document_Content{
			Content: text,
		},
		Type:         languagepb.Document_PLAIN_TEXT,
		LanguageCode: lang,
	}
}

func (g *Google) DetectLanguage(ctx context.Context, text string) (types.LanguageResult, error) {
	resp, err := g.sentiment(ctx, OpDetectLanguage, text, "")
	if err != nil {
		return types.LanguageResult{}, err
	}
	if resp.LanguageCode == "" {
		return types.LanguageResult{}, failure.Decode(OpDetectLanguage.Describe(), errors.New("response carried no language code"))
	}
	code := primarySubtag(resp.LanguageCode)
	return types.LanguageResult{Name: LanguageName(code), ISO6391: code}, nil
}

func (g *Google) AnalyzeSentiment(ctx context.Context, text, lang string) (types.SentimentResult, error) {
	resp, err := g.sentiment(ctx, OpSentiment, text, lang)
	if err != nil {
		return types.SentimentResult{}, err
	}
	if resp.DocumentSentiment == nil {
		return types.SentimentResult{}, failure.Decode(OpSentiment.Describe(), errors.New("response carried no document sentiment"))
	}
	return scoreToSentiment(float64(resp.DocumentSentiment.Score), float64(resp.DocumentSentiment.Magnitude)), nil
}

// ExtractKeyPhrases returns the distinct entities mentioned as common nouns,
// the closest thing the API has to key phrases.
func (g *Google) ExtractKeyPhrases(ctx context.Context, text, lang string) (types.KeyPhraseSet, error) {
	entities, err := g.entities(ctx, OpKeyPhrases, text, lang)
	if err != nil {
		return nil, err
	}
	var phrases types.KeyPhraseSet
	seen := make(map[string]bool)
	for _, e := range entities {
		if seen[e.Name] || !hasCommonMention(e) {
			continue
		}
		seen[e.Name] = true
		phrases = append(phrases, e.Name)
	}
	return phrases, nil
}

func (g *Google) RecognizeEntities(ctx context.Context, text, lang string) (types.EntitySet, error) {
	entities, err := g.entities(ctx, OpEntities, text, lang)
	if err != nil {
		return nil, err
	}
	var out types.EntitySet
	for _, e := range entities {
		mention := e.Name
		if len(e.Mentions) > 0 && e.Mentions[0].Text != nil {
			mention = e.Mentions[0].Text.Content
		}
		out = append(out, types.Entity{
			Text:     mention,
			Category: categoryName(e.Type),
		})
	}
	return out, nil
}

// RecognizeLinkedEntities keeps the entities the API resolved to Wikipedia.
func (g *Google) RecognizeLinkedEntities(ctx context.Context, text, lang string) (types.LinkedEntitySet, error) {
	entities, err := g.entities(ctx, OpLinkedEntities, text, lang)
	if err != nil {
		return nil, err
	}
	var out types.LinkedEntitySet
	for _, e := range entities {
		if u := e.Metadata["wikipedia_url"]; u != "" {
			out = append(out, types.LinkedEntity{Name: e.Name, URL: u, DataSource: "Wikipedia"})
		}
	}
	return out, nil
}

func (g *Google) sentiment(ctx context.Context, op Operation, text, lang string) (*languagepb.AnalyzeSentimentResponse, error) {
	resp, err := g.client.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
		Document:     document(text, lang),
		EncodingType: languagepb.EncodingType_UTF8,
	})
	if err != nil {
		return nil, grpcFailure(op, err)
	}
	return resp, nil
}

func (g *Google) entities(ctx context.Context, op Operation, text, lang string) ([]*languagepb.Entity, error) {
	resp, err := g.client.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{
		Document:     document(text, lang),
		EncodingType: languagepb.EncodingType_UTF8,
	})
	if err != nil {
		return nil, grpcFailure(op, err)
	}
	return resp.Entities, nil
}

func hasCommonMention(e *languagepb.Entity) bool {
	for _, m := range e.Mentions {
		if m.Type == languagepb.EntityMention_COMMON {
			return true
		}
	}
	return false
}

// categoryName turns WORK_OF_ART into WorkOfArt.
func categoryName(t languagepb.Entity_Type) string {
	words := strings.Split(strings.ToLower(t.String()), "_")
	title := cases.Title(textlang.English)
	for i, w := range words {
		words[i] = title.String(w)
	}
	return strings.Join(words, "")
}

// scoreToSentiment maps a score in [-1,1] and its magnitude onto a label and
// three confidences that sum to 1.
func scoreToSentiment(score, magnitude float64) types.SentimentResult {
	score = math.Max(-1, math.Min(1, score))
	res := types.SentimentResult{
		Positive: math.Max(score, 0),
		Negative: math.Max(-score, 0),
		Neutral:  1 - math.Abs(score),
	}
	switch {
	case score >= sentimentThreshold:
		res.Label = types.SentimentPositive
	case score <= -sentimentThreshold:
		res.Label = types.SentimentNegative
	case magnitude >= mixedMagnitude:
		res.Label = types.SentimentMixed
	default:
		res.Label = types.SentimentNeutral
	}
	return res
}

func primarySubtag(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return strings.ToLower(code[:i])
	}
	return strings.ToLower(code)
}

func grpcFailure(op Operation, err error) error {
	opName := op.Describe()
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return failure.Auth(opName, err)
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.OutOfRange:
		return failure.Remote(opName, http.StatusBadRequest, err)
	case codes.ResourceExhausted:
		return failure.Remote(opName, http.StatusTooManyRequests, err)
	default:
		return failure.Remote(opName, 0, err)
	}
}
