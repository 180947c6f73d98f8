package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildConsultPromptBindsAllBlocks(t *testing.T) {
	prompt := BuildConsultPrompt("hindu", "will I marry soon?", "Saturn delays unions.", "Additional Context:\nborn 1990")

	assert.Contains(t, prompt, "Vedic astrology advisor")
	assert.Contains(t, prompt, "will I marry soon?")
	assert.Contains(t, prompt, "Saturn delays unions.")
	assert.Contains(t, prompt, "Additional Context:\nborn 1990")
	assert.Contains(t, prompt, "mantras, gemstones, pujas")
}

func TestBuildConsultPromptPlaceholders(t *testing.T) {
	prompt := BuildConsultPrompt("secular", "question", "", "")

	assert.Contains(t, prompt, "No specific knowledge retrieved. Use your expertise.")
	assert.Contains(t, prompt, "No additional context provided.")
}

func TestBuildConsultPromptUnknownReligionFallsBackToSecular(t *testing.T) {
	unknown := BuildConsultPrompt("martian", "q", "", "")
	secular := BuildConsultPrompt("secular", "q", "", "")

	assert.Equal(t, secular, unknown)
}
