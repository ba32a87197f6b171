package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "en", Normalize(""))
	assert.Equal(t, "en", Normalize("en"))
	assert.Equal(t, "ru", Normalize("ru-RU"))
	assert.Equal(t, "es", Normalize("es_MX"))
	assert.Equal(t, "en", Normalize("fr"))
	assert.Equal(t, "en", Normalize("garbage!!"))
}

func TestMessagesFallBackToEnglish(t *testing.T) {
	assert.Equal(t, ProcessingText("en"), ProcessingText("de"))
	assert.NotEqual(t, ProcessingText("en"), ProcessingText("ru"))
}

func TestFailureTextNamesSupportContact(t *testing.T) {
	text := FailureText("ru", "@photobot_support")
	assert.Contains(t, text, "@photobot_support")
}

func TestCompletedCaptionIncludesBalance(t *testing.T) {
	assert.Contains(t, CompletedCaption("en", 4), "4")
	assert.Contains(t, CompletedCaption("es", 0), "0")
}
