package classifier

import (
	"fmt"
	"strings"

	"github.com/teemow/labelfewer/internal/memory"
)

// buildPrompt renders the classification prompt. excludedLabels lists labels
// the model must not suggest; forceDifferent amplifies that instruction on
// the retry after the model repeated one of them.
func buildPrompt(msg Message, labelNames []string, examples []memory.Example, excludedLabels []string, forceDifferent bool) string {
	var b strings.Builder

	b.WriteString(`You are an intelligent email classification assistant. Your job is to deeply analyze each email and suggest the MOST APPROPRIATE label.

YOUR TASK:
1. ANALYZE THOROUGHLY: Read the subject, sender, and content snippet carefully
2. UNDERSTAND THE CONTEXT: What is this email about? What is its purpose?
3. CHECK EXISTING LABELS: Does any existing label truly fit this email's purpose?
4. CREATE IF NEEDED: If no existing label is a good match, create a NEW descriptive label

CRITICAL RULES:
- NEVER use generic labels like "Uncategorized", "Other", "Misc", or "General"
- ALWAYS create a specific, meaningful label that describes the email's actual purpose
- Think about future emails: "Will similar emails fit under this label?"
- Use the sender, subject, and content to inform your decision
- ALWAYS add an appropriate emoji to NEW labels for better visual identification

EXAMPLES OF GOOD LABELING WITH EMOJIS:
- Security alert from a provider -> "Security Alerts 🚨" or "Account Notifications 🔐"
- Credit card payment confirmation -> "Credit Card Payments 💳" or "Banking Transactions 🏦"
- Order confirmation from a shop -> "Shopping Orders 🛒" or "E-commerce 📦"
- Streaming subscription renewal -> "Subscriptions 📺" or "Entertainment 🎬"
- Job alert -> "Job Alerts 💼" or "Career Opportunities 🚀"
- Electricity bill -> "Utility Bills ⚡"
- Travel booking -> "Travel Plans ✈️"
- Tax documents -> "Tax Documents 📊"
- Health appointments -> "Health & Medical 🏥"

LABEL FORMATTING:
- Use title case (e.g., "Credit Card Payments 💳")
- Keep it concise but descriptive (2-4 words)
- ALWAYS include a relevant emoji at the end for new labels

EXISTING LABELS:
`)
	if len(labelNames) > 0 {
		b.WriteString(strings.Join(labelNames, ", "))
	} else {
		b.WriteString("No existing custom labels")
	}

	fmt.Fprintf(&b, `

EMAIL TO CLASSIFY:
Subject: %s
From: %s
Snippet: %s

SIMILAR EMAILS FROM MEMORY (for reference):
`, msg.Subject, msg.Sender, msg.Snippet)

	if len(examples) > 0 {
		for _, ex := range examples {
			fmt.Fprintf(&b, "- Subject: %s | Sender: %s | Snippet: %s\n  Applied Label: %s\n",
				ex.Subject, ex.Sender, ex.Snippet, ex.Label)
		}
	} else {
		b.WriteString("None\n")
	}

	if len(excludedLabels) > 0 {
		fmt.Fprintf(&b, "\nIMPORTANT: The user has already rejected these suggestions for emails like this one: %s. Do NOT suggest any of these labels again.\n",
			strings.Join(excludedLabels, ", "))
	}
	if forceDifferent {
		b.WriteString("\nCRITICAL: The user specifically wants a DIFFERENT suggestion. Be creative and suggest something completely different from the rejected labels.\n")
	}

	b.WriteString(`
Return a JSON object with fields: "label" (string - a specific, meaningful label WITH emoji), "rationale" (string explaining why this label fits the email content).`)

	return b.String()
}
