package processor

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"go-reviewlens/failure"
	"go-reviewlens/types"
)

// printer writes the report sections. The first write error sticks and
// silences later writes.
type printer struct {
	w   io.Writer
	log logrus.FieldLogger
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	if _, err := fmt.Fprintf(p.w, format, args...); err != nil {
		p.err = failure.IO("write report", err)
	}
}

func (p *printer) header(name string) {
	p.printf("\n-------------\n%s\n", name)
}

func (p *printer) text(text string) {
	p.printf("\n%s\n", text)
}

func (p *printer) language(lang types.LanguageResult) {
	p.printf("\nLanguage: %s\n", lang.Name)
}

func (p *printer) sentiment(s types.SentimentResult) {
	p.printf("\nSentiment: %s\n", s.Label)
	p.printf("Scores: Positive=%.2f, Negative=%.2f, Neutral=%.2f\n",
		p.unit("positive", s.Positive), p.unit("negative", s.Negative), p.unit("neutral", s.Neutral))
}

func (p *printer) keyPhrases(phrases types.KeyPhraseSet) {
	if len(phrases) == 0 {
		return
	}
	p.printf("\nKey Phrases:\n")
	for _, phrase := range phrases {
		p.printf("\t%s\n", phrase)
	}
}

func (p *printer) entities(entities types.EntitySet) {
	if len(entities) == 0 {
		return
	}
	p.printf("\nEntities:\n")
	for _, e := range entities {
		p.printf("\t%s (%s)\n", e.Text, e.Category)
	}
}

func (p *printer) linkedEntities(entities types.LinkedEntitySet) {
	if len(entities) == 0 {
		return
	}
	p.printf("\nLinked Entities:\n")
	for _, e := range entities {
		p.printf("\t%s: %s\n", e.Name, e.URL)
	}
}

// unit clamps a confidence score into [0,1]; NaN prints as 0. Clamped
// values are logged since they mean the provider answered out of range.
func (p *printer) unit(name string, v float64) float64 {
	clamped := 0.0
	if !math.IsNaN(v) {
		clamped = math.Max(0, math.Min(1, v))
	}
	if clamped != v && p.log != nil {
		p.log.WithFields(logrus.Fields{"score": name, "value": v}).Debug("confidence score out of range, clamped")
	}
	return clamped
}
