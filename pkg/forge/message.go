package forge

import (
	"fmt"
	"strings"

	"github.com/sdlc-forge/maestro/pkg/models"
)

const maxAnswerExcerptLen = 2000

// BuildEscalationTitle creates the issue title for an escalation notice.
func BuildEscalationTitle(esc *models.Escalation) string {
	return fmt.Sprintf("[escalation] %s: low-confidence answer (%d%%)", esc.Topic, esc.Confidence)
}

// BuildEscalationBody creates the issue body for an escalation notice. The
// body carries the question, the tentative answer, the worker's uncertainty
// reasons, and the three response hints a reviewer can use.
func BuildEscalationBody(esc *models.Escalation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "An expert answer for topic `%s` came back below the confidence threshold.\n\n", esc.Topic)
	fmt.Fprintf(&b, "**Question**\n\n%s\n\n", esc.Question)
	fmt.Fprintf(&b, "**Tentative answer** (confidence %d)\n\n%s\n\n", esc.Confidence, excerpt(esc.TentativeAnswer))

	if len(esc.UncertaintyReasons) > 0 {
		b.WriteString("**Uncertainty reasons**\n\n")
		for _, reason := range esc.UncertaintyReasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Escalation id: `%s`\n\n", esc.ID)
	b.WriteString("Respond with one of:\n\n")
	b.WriteString("- `/confirm` to accept the tentative answer\n")
	b.WriteString("- `/correct <answer>` to replace the answer\n")
	b.WriteString("- `/context <info>` to add context and re-ask\n")

	return b.String()
}

func excerpt(text string) string {
	if len(text) <= maxAnswerExcerptLen {
		return text
	}
	return text[:maxAnswerExcerptLen] + "…"
}
