package reflection

import (
	"strings"
	"text/template"
)

type promptData struct {
	Query    string
	Response string
}

var promptTemplates = map[Strategy]*template.Template{
	SelfCritique: mustTemplate(SelfCritique, `Critique your previous response and suggest improvements:
Question:
 {{.Query}}

Your previous response:
 {{.Response}}

Your task is to critically analyze your response. Identify any potential errors, oversights, or areas where the reasoning could be strengthened. Then provide an improved response that addresses these issues.`),

	AlternativeGeneration: mustTemplate(AlternativeGeneration, `Consider your previous response to this question:

Question: {{.Query}}

Your previous response:

{{.Response}}

Generate alternative approaches or perspectives that you did not consider initially. Then synthesize these alternatives with your original thinking to provide a more comprehensive response.`),

	ConfidenceAssessment: mustTemplate(ConfidenceAssessment, `Evaluate your previous response to this question:

Question: {{.Query}}

Your previous response:

{{.Response}}

For each major claim or conclusion in your response, assess your confidence level and identify areas of uncertainty. Focus your reflection on the low-confidence areas and provide additional analysis or revised reasoning where needed.`),

	Verification: mustTemplate(Verification, `Verify your previous response to this question:

Question: {{.Query}}

Your previous response:
{{.Response}}

Check whether your response satisfies these criteria: internal logical consistency, completeness in addressing all aspects of the question, and accuracy of any factual claims. Identify any failures and provide a corrected response.`),

	Adversarial: mustTemplate(Adversarial, `Challenge your previous response to this question:

Question: {{.Query}}

Your previous response:

{{.Response}}

Adopt a skeptical perspective and argue against your own conclusions. What counterarguments or alternative explanations exist? After considering these challenges, provide a refined response that addresses the strongest objections.`),
}

func mustTemplate(s Strategy, text string) *template.Template {
	return template.Must(template.New(string(s)).Option("missingkey=error").Parse(text))
}

// BuildPrompt fills the strategy's template with the original query and the
// previous response. Both are embedded verbatim.
func BuildPrompt(strategy Strategy, originalQuery, previousResponse string) (string, error) {
	tmpl, ok := promptTemplates[strategy]
	if !ok {
		return "", &UnknownStrategyError{Strategy: strategy}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, promptData{Query: originalQuery, Response: previousResponse}); err != nil {
		return "", err
	}
	return sb.String(), nil
}
