package query

import (
	"strings"
	"text/template"

	"github.com/passbi/passbi_planner/internal/models"
)

// AnyPreference fills the preference slot when the caller has none
const AnyPreference = "any"

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a helpful route planning assistant using GraphHopper data.
Based on the given context information about routes, directions, and locations,
provide a helpful and natural response to the user's query.

Chat History:
{{- range .History}}
User: {{.Query}}
Assistant: {{.Answer}}
{{- else}} none
{{- end}}

Retrieved route information:
{{.Context}}

User Query: {{.Question}}

Transport Preference: {{.Preference}}

Please provide a detailed response that includes:
1. Clear directions in a conversational tone
2. Relevant information about points of interest
3. Any necessary warnings or tips for the route

Response:
`))

type promptData struct {
	History    []models.Turn
	Context    string
	Question   string
	Preference string
}

// buildPrompt renders the fixed template. Preference falls back to "any".
func buildPrompt(history []models.Turn, context, question, preference string) (string, error) {
	if strings.TrimSpace(preference) == "" {
		preference = AnyPreference
	}

	var b strings.Builder
	err := promptTemplate.Execute(&b, promptData{
		History:    history,
		Context:    context,
		Question:   question,
		Preference: preference,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// buildContext joins unit contents in rank order
func buildContext(units []models.KnowledgeUnit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Content
	}
	return strings.Join(parts, "\n\n")
}

// enhanceQuery appends the location clause then the preference clause
func enhanceQuery(text, userLocation, preference string) string {
	enhanced := text
	if loc := strings.TrimSpace(userLocation); loc != "" {
		enhanced += " (User is currently at " + loc + ")"
	}
	if pref := strings.TrimSpace(preference); pref != "" {
		enhanced += " (Preferred transport: " + pref + ")"
	}
	return enhanced
}
