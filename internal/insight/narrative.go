package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/anomaly"
)

// Source tells whether narrative text came from the generator or the local template.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// FallbackNotice opens every templated narrative.
const FallbackNotice = "This summary was produced from computed metrics only; the narrative service was not used."

// Narrative is the text placed in the report.
type Narrative struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	// Err is the generation failure that caused a fallback, if any.
	Err error `json:"-"`
}

// Sections parses Text against the section format.
func (n Narrative) Sections() []Section { return ParseSections(n.Text) }

// NarrativeGenerationError wraps any failure of the narrative generator.
type NarrativeGenerationError struct {
	Err error
}

func (e *NarrativeGenerationError) Error() string {
	return fmt.Sprintf("narrative generation failed: %v", e.Err)
}

func (e *NarrativeGenerationError) Unwrap() error { return e.Err }

// Generate calls n under timeout. Any failure is logged and replaced by the fallback
// narrative, so Generate always returns usable text. A nil narrator goes straight to
// the fallback without an error.
func Generate(ctx context.Context, n Narrator, timeout time.Duration, c Context, m *analysis.Metrics, r *anomaly.Report) Narrative {
	if n == nil {
		return Narrative{Text: FallbackNarrative(m, r), Source: SourceFallback}
	}
	log := zerolog.Ctx(ctx)
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := n.Narrate(callCtx, c)
	if err == nil && text == "" {
		err = errors.New("empty narrative")
	}
	if err != nil {
		genErr := &NarrativeGenerationError{Err: err}
		log.Warn().Err(genErr).Dur("elapsed", time.Since(start)).Msg("using fallback narrative")
		return Narrative{Text: FallbackNarrative(m, r), Source: SourceFallback, Err: genErr}
	}
	log.Debug().Dur("elapsed", time.Since(start)).Int("sections", len(ParseSections(text))).Msg("narrative generated")
	return Narrative{Text: text, Source: SourceGenerated}
}

// FallbackNarrative is a deterministic summary using only the row count, anomaly count
// and anomaly percentage. It follows the same section format as generated text.
func FallbackNarrative(m *analysis.Metrics, r *anomaly.Report) string {
	p := message.NewPrinter(language.English)
	total := 0
	if m != nil {
		total = m.TotalRows
	}
	count, pct := 0, 0.0
	if r != nil {
		count, pct = r.AnomalyCount, r.AnomalyPercentage
	}
	sections := []Section{
		{Title: SectionTitles[0], Body: FallbackNotice + "\n" +
			p.Sprintf("The dataset contains %d records. Missing numeric values were filled with column means before analysis.", total)},
		{Title: SectionTitles[1], Body: p.Sprintf("- %d of %d records (%.2f%%) were flagged as anomalous.", count, total, pct) + "\n" +
			"- Summary statistics for every numeric column are listed in the statistics table."},
		{Title: SectionTitles[2], Body: p.Sprintf("The isolation forest flagged %d records (%.2f%%) whose numeric values are isolated from the bulk of the data. ", count, pct) +
			"The most anomalous records are listed first."},
		{Title: SectionTitles[3], Body: "1. Review the top anomalous records for data entry errors or operational issues.\n" +
			"2. Confirm whether flagged records reflect real events before acting on them.\n" +
			"3. Re-run the analysis after corrections to confirm the anomaly rate."},
	}
	return JoinSections(sections)
}
