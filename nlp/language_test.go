package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"en": "English",
		"fr": "French",
		"es": "Spanish",
		"ja": "Japanese",
		"@@": "@@",
	}
	for code, want := range tests {
		assert.Equal(t, want, LanguageName(code), code)
	}
}

func TestPrimarySubtag(t *testing.T) {
	assert.Equal(t, "en", primarySubtag("en-US"))
	assert.Equal(t, "zh", primarySubtag("zh_Hant"))
	assert.Equal(t, "fr", primarySubtag("FR"))
}
