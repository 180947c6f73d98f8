package services

import (
	"fmt"
	"strings"
)

// Prompt instructions alone are not enough to keep the model from promising
// remedies it never emits, so a second, code-level signal is computed from
// the conversation text. The stored conversation stage is the primary signal;
// the keyword scan remains as a compatibility shim for prompt flows authored
// before stages existed.

var (
	timelineWords    = []string{"persist", "improvement", "resolution", "challenge", "planetary"}
	affirmativeWords = []string{"yes", "remedies", "remedy", "help", "suggest", "share"}
	religionWords    = []string{"hindu", "muslim", "christian", "sikh", "jain", "buddhist", "secular"}
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// ShouldForceRemedy is the pure keyword heuristic: the context must show that
// a timeline was delivered (or that remedies were offered), and the question
// must affirm or name a religion.
func ShouldForceRemedy(contextText, question string) bool {
	ctx := strings.ToLower(contextText)
	q := strings.ToLower(question)

	hasTimeline := containsAny(ctx, timelineWords)
	hasAffirmative := containsAny(q, affirmativeWords)
	hasReligion := containsAny(q, religionWords)
	askedForRemedies := strings.Contains(ctx, "would you like") && strings.Contains(ctx, "remedies")

	return (hasTimeline && (hasAffirmative || hasReligion)) ||
		(askedForRemedies && (hasAffirmative || hasReligion))
}

// UserAffirmsRemedies reports whether the question alone reads as consent to
// receive remedies. Used together with the stored conversation stage.
func UserAffirmsRemedies(question string) bool {
	q := strings.ToLower(question)
	return containsAny(q, affirmativeWords) || containsAny(q, religionWords)
}

// RemedyDirective is the imperative appended to the context block when the
// gate fires. Advisory only: it biases the model but does not guarantee its
// output, which is why the response validator exists.
func RemedyDirective(religion string) string {
	return fmt.Sprintf("\n\n[SYSTEM OVERRIDE - MANDATORY ACTION REQUIRED]\n"+
		"User has confirmed they want remedies for %s faith.\n"+
		"You MUST populate the 'remedy' field with comprehensive DOS/DON'TS/CHARITY content NOW.\n"+
		"Do NOT leave remedy field empty. Do NOT ask more questions. PROVIDE REMEDIES IMMEDIATELY.\n",
		strings.ToUpper(religion))
}
