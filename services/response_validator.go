package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
)

// Fallback copy used when the model's output is missing fields or cannot be
// parsed at all. Parse failures never surface to the caller.
const (
	defaultCategory = "General"
	defaultAnswer   = "I sense important energies surrounding your question. Please allow me to provide deeper insight in a moment."
	defaultRemedy   = "Take time for reflection and meditation. Trust in the cosmic timing of your journey."
	fallbackRemedy  = "I recommend taking time for spiritual reflection and meditation to gain clarity on this matter."
)

// minRemedyLength is the threshold below which a remedy counts as empty for
// remedy-loop detection.
const minRemedyLength = 20

var remedyLoopPhrases = []string{
	"here are remedies",
	"remedies aligned",
	"suggest remedies",
	"following remedies",
}

// DefectKind classifies recoverable defects in model output, each with its
// own retry policy.
type DefectKind string

const DefectRemedyLoop DefectKind = "remedy_loop"

// RetryPolicy bounds how often a defect class may trigger an extra model
// call. New defect classes register their own policy instead of duplicating
// ad hoc retry logic.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// OutputParseError reports that the model's raw output could not be decoded
// into the expected schema. It is always recovered locally.
type OutputParseError struct {
	Err error
	Raw string
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("could not parse model output: %v", e.Err)
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// parsedConsultation uses pointer fields so an explicitly empty value can be
// told apart from a missing one: a missing remedy gets the default text, an
// empty remedy is a candidate remedy-loop defect.
type parsedConsultation struct {
	Category *string `json:"category"`
	Answer   *string `json:"answer"`
	Remedy   *string `json:"remedy"`
}

// Consultation is the validated, structured form of the model's output.
type Consultation struct {
	Category string
	Answer   string
	Remedy   string
}

// ResponseValidator tolerantly decodes raw model output and repairs the
// remedy-loop defect with a bounded number of extra model calls.
type ResponseValidator struct {
	generator TextGenerator
	policies  map[DefectKind]RetryPolicy
	sleep     func(time.Duration)
}

func NewResponseValidator(generator TextGenerator) *ResponseValidator {
	return &ResponseValidator{
		generator: generator,
		policies: map[DefectKind]RetryPolicy{
			DefectRemedyLoop: {MaxAttempts: 1, Backoff: 0},
		},
		sleep: time.Sleep,
	}
}

// Validate parses the raw output and returns a well-formed consultation in
// every case. Unparsable output degrades to the fallback branch; a detected
// remedy loop triggers the repair flow.
func (v *ResponseValidator) Validate(ctx context.Context, raw, religion string) Consultation {
	parsed, err := parseConsultation(raw)
	if err != nil {
		log.Printf("SERVICE: %v. Response: %.500s", err, raw)
		return Consultation{
			Category: defaultCategory,
			Answer:   unwrapText(raw),
			Remedy:   fallbackRemedy,
		}
	}

	result := Consultation{
		Category: titleCase(stringOr(parsed.Category, defaultCategory)),
		Answer:   stringOr(parsed.Answer, defaultAnswer),
		Remedy:   stringOr(parsed.Remedy, defaultRemedy),
	}

	if isRemedyLoop(result.Answer, result.Remedy) {
		log.Printf("SERVICE: remedy loop detected, answer promises remedies but remedy field is empty; forcing remedy generation")
		if remedy, ok := v.repair(ctx, DefectRemedyLoop, remedyRepairPrompt(religion)); ok {
			result.Remedy = remedy
		}
	}

	return result
}

// repair issues the corrective model calls allowed by the defect's retry
// policy and returns the first non-empty result verbatim.
func (v *ResponseValidator) repair(ctx context.Context, kind DefectKind, prompt string) (string, bool) {
	policy := v.policies[kind]
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 && policy.Backoff > 0 {
			v.sleep(policy.Backoff)
		}
		text, err := v.generator.Generate(ctx, prompt)
		if err != nil {
			log.Printf("SERVICE: repair call for %s failed: %v", kind, err)
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// parseConsultation extracts the JSON object from the raw output and decodes
// it strictly. Extraction is one well-defined step: the slice from the first
// '{' to the last '}', which also disposes of code fences and conversational
// preambles.
func parseConsultation(raw string) (*parsedConsultation, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, &OutputParseError{Err: fmt.Errorf("no JSON object found"), Raw: raw}
	}

	var parsed parsedConsultation
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, &OutputParseError{Err: err, Raw: raw}
	}
	return &parsed, nil
}

func isRemedyLoop(answer, remedy string) bool {
	if len(strings.TrimSpace(remedy)) >= minRemedyLength {
		return false
	}
	return containsAny(strings.ToLower(answer), remedyLoopPhrases)
}

// unwrapText is the best-effort plain-text extraction used when no JSON can
// be decoded: strip fences and whitespace, fall back to the default answer if
// nothing is left.
func unwrapText(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultAnswer
	}
	return text
}

func stringOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

// titleCase normalizes a category name: first letter of each word upper-cased,
// the rest lowered.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}

func remedyRepairPrompt(religion string) string {
	return fmt.Sprintf(`[CRITICAL SYSTEM OVERRIDE]
The user wants %s remedies NOW. You said "here are remedies" but provided NOTHING in the remedy field.

You MUST generate comprehensive remedies following this structure:

DOS (Practices to follow):
1. [Specific practice with exact details]
2. [Another practice]
3. [Third practice]

DON'TS (Things to avoid):
1. [Specific thing to avoid]
2. [Another thing to avoid]

CHARITY (Donations/Service):
1. [Specific charity with details]
2. [Another charity work]

Generate NOW. No more delays. No more empty fields.`, strings.ToUpper(religion))
}
