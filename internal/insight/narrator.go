package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/insightloom/internal/ai"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// Narrator turns a Context into narrative text.
type Narrator interface {
	Narrate(ctx context.Context, c Context) (string, error)
}

// NarratorFunc adapts a function to Narrator.
type NarratorFunc func(ctx context.Context, c Context) (string, error)

func (f NarratorFunc) Narrate(ctx context.Context, c Context) (string, error) { return f(ctx, c) }

// SectionTitles are the sections the generator is asked for, in order.
var SectionTitles = []string{"Data Health", "Key Findings", "Anomalies Detected", "Recommended Actions"}

const systemPrompt = "You are a Senior Data Analyst preparing an executive summary report."

// LLMNarrator asks a chat runtime for the narrative.
type LLMNarrator struct {
	rt          ai.Runtime
	model       string
	temperature float64
	maxTokens   int
}

// NewLLMNarrator returns a narrator bound to rt and model.
func NewLLMNarrator(rt ai.Runtime, model string, temperature float64, maxTokens int) *LLMNarrator {
	return &LLMNarrator{rt: rt, model: model, temperature: temperature, maxTokens: maxTokens}
}

func (n *LLMNarrator) Narrate(ctx context.Context, c Context) (string, error) {
	prompt, err := BuildPrompt(c)
	if err != nil {
		return "", err
	}
	zerolog.Ctx(ctx).Debug().
		Str("model", n.model).
		Int("prompt_tokens_est", utils.CountTokens(prompt)).
		Msg("requesting narrative")
	resp, err := n.rt.Generate(ctx, ai.GenerateRequest{
		Model: n.model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   n.maxTokens,
		Temperature: n.temperature,
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", &ai.EmptyResponseError{Model: n.model}
	}
	if n.maxTokens > 0 {
		text = utils.TruncateToTokenLimit(text, n.maxTokens)
	}
	return text, nil
}

// BuildPrompt renders the rules, the JSON context and the section format.
func BuildPrompt(c Context) (string, error) {
	payload, err := utils.PrettyJSON(c)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("STRICT RULES:\n")
	b.WriteString("1. Only use the data provided in the context below\n")
	b.WriteString("2. If you don't have specific information, say \"Data not available\"\n")
	b.WriteString("3. Never invent numbers or facts\n")
	b.WriteString("4. Focus on actionable insights\n")
	b.WriteString("5. Keep the tone professional but conversational\n\n")
	b.WriteString("CONTEXT:\n")
	b.Write(payload)
	b.WriteString("\n\nFORMAT:\n")
	b.WriteString(fmt.Sprintf("Write exactly %d sections in this order: %s.\n", len(SectionTitles), strings.Join(SectionTitles, ", ")))
	b.WriteString("Start each section with a line of the form \"## <title>\" followed by its content.\n")
	b.WriteString("Separate sections with one blank line and use no other headings.\n")
	b.WriteString("Data Health: 2-3 sentences. Key Findings: 3-4 bullet points starting with \"- \".\n")
	b.WriteString("Anomalies Detected: explain their significance. Recommended Actions: 2-3 numbered items.\n")
	b.WriteString("Keep the total response under 300 words.\n")
	return b.String(), nil
}
