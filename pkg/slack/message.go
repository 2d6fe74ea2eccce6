package slack

import (
	"fmt"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/sdlc-forge/maestro/pkg/models"
)

const maxBlockTextLength = 2900

// BuildEscalationCreatedMessage creates Block Kit blocks announcing a new
// pending escalation.
func BuildEscalationCreatedMessage(esc *models.Escalation) []goslack.Block {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *Escalation opened* for topic `%s` (confidence %d)\n\n", esc.Topic, esc.Confidence)
	fmt.Fprintf(&b, "*Question:* %s\n", truncate(esc.Question))
	fmt.Fprintf(&b, "*Tentative answer:* %s\n", truncate(esc.TentativeAnswer))
	if len(esc.UncertaintyReasons) > 0 {
		fmt.Fprintf(&b, "*Uncertain about:* %s\n", strings.Join(esc.UncertaintyReasons, "; "))
	}
	fmt.Fprintf(&b, "Escalation id: `%s`", esc.ID)

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, b.String(), false, false),
			nil, nil,
		),
	}
}

// BuildEscalationResolvedMessage creates Block Kit blocks for a resolution.
func BuildEscalationResolvedMessage(esc *models.Escalation) []goslack.Block {
	action := ""
	if esc.HumanAction != nil {
		action = string(*esc.HumanAction)
	}
	responder := ""
	if esc.HumanResponder != nil {
		responder = *esc.HumanResponder
	}

	var b strings.Builder
	fmt.Fprintf(&b, ":white_check_mark: *Escalation resolved*: `%s` by %s (`%s`)", esc.ID, responder, action)
	if esc.HumanResponse != nil && *esc.HumanResponse != "" {
		fmt.Fprintf(&b, "\n*Response:* %s", truncate(*esc.HumanResponse))
	}

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, b.String(), false, false),
			nil, nil,
		),
	}
}

func truncate(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "…"
}
