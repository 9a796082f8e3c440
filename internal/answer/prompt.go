package answer

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// Instructions is the system instruction given to the preferred provider.
const Instructions = `You are a calm, practical disaster-preparedness assistant for residents of the United States.
Answer in short plain sentences without markdown headings.
Prefer concrete actions over background. Use the location, month, active hazards, and local guidance provided with each question when they are relevant.
If someone describes a life-threatening emergency, tell them to call 911 first.`

// PromptBuilder renders the locality preamble sent with every question.
type PromptBuilder struct {
	tips *domain.TipsService
}

// NewPromptBuilder creates a PromptBuilder that draws local guidance from tips.
func NewPromptBuilder(tips *domain.TipsService) *PromptBuilder {
	return &PromptBuilder{tips: tips}
}

// Prompt returns the text sent to the provider for question under ac.
func (b *PromptBuilder) Prompt(question string, ac domain.AskContext) string {
	var sb strings.Builder

	if ac.Region == nil {
		sb.WriteString("Location: not selected\n")
	} else {
		fmt.Fprintf(&sb, "Location: %s (%s)\n", ac.Region.Name, ac.Region.Code)
	}
	fmt.Fprintf(&sb, "Month: %s\n", ac.Month)

	if ac.Region != nil {
		if hazards := domain.ActiveHazards(*ac.Region, ac.Month); len(hazards) > 0 {
			fmt.Fprintf(&sb, "Active hazards: %s (peak risk %s)\n",
				strings.Join(hazards, ", "), domain.PeakRisk(*ac.Region, ac.Month))
		}
	}

	if tips := b.tips.Tips(ac.Region, ac.Month); len(tips) > 0 {
		sb.WriteString("Local guidance:\n")
		for _, t := range tips {
			sb.WriteString("- ")
			sb.WriteString(t)
			sb.WriteByte('\n')
		}
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))
	return sb.String()
}
