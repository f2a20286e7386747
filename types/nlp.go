package types

// ReviewDocument is one review file read from the input folder.
type ReviewDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// LanguageResult is the primary language detected for a document.
type LanguageResult struct {
	Name       string  `json:"name" yaml:"name"`
	ISO6391    string  `json:"iso6391Name" yaml:"iso6391"`
	Confidence float64 `json:"confidenceScore,omitempty" yaml:"confidence,omitempty"`
}

// Sentiment labels returned by the remote service.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// SentimentResult holds the document sentiment and its confidence scores.
// Scores lie in [0,1] and roughly sum to 1.
type SentimentResult struct {
	Label    string  `json:"sentiment" yaml:"label"`
	Positive float64 `json:"positive" yaml:"positive"`
	Negative float64 `json:"negative" yaml:"negative"`
	Neutral  float64 `json:"neutral" yaml:"neutral"`
}

// KeyPhraseSet holds the salient phrases of a document. May be empty.
type KeyPhraseSet []string

// Entity represents a named entity detected in the text.
type Entity struct {
	Text        string  `json:"text" yaml:"text"`
	Category    string  `json:"category" yaml:"category"`
	Subcategory string  `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Confidence  float64 `json:"confidenceScore,omitempty" yaml:"confidence,omitempty"`
}

type EntitySet []Entity

// LinkedEntity is an entity resolved to a knowledge-base entry.
type LinkedEntity struct {
	Name       string `json:"name" yaml:"name"`
	URL        string `json:"url" yaml:"url"`
	DataSource string `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
}

type LinkedEntitySet []LinkedEntity
