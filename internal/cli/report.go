package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-critical-point/internal/aggregate"
	"github.com/Veraticus/the-critical-point/internal/engine"
	"github.com/Veraticus/the-critical-point/internal/model"
)

// RenderResult formats a pipeline result as a certification-style report.
func RenderResult(result *engine.Result) string {
	var b strings.Builder

	header := TitleStyle.Render("Critical-Point Hunt") + "\n" +
		SubtleStyle.Render(fmt.Sprintf(
			"dim=%d  subdomains=%d  candidates=%d  elapsed=%s",
			result.Domain.Dim(), result.Subdomains, result.Candidates, result.Elapsed.Round(time.Millisecond)))
	b.WriteString(BoxStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(renderTypeCounts(result.Summary))
	b.WriteString("\n")
	b.WriteString(renderQuality(result.Summary))
	b.WriteString("\n")
	b.WriteString(renderMinimizers(result.Minimizers))

	if len(result.Degraded) > 0 {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d sub-domain(s) degraded:", len(result.Degraded))))
		b.WriteString("\n")
		for label, reason := range result.Degraded {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("  %s: %s", label, reason)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderTypeCounts(summary aggregate.Summary) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render("Classification"))
	b.WriteString("\n")

	order := []model.CriticalPointType{
		model.TypeMinimum, model.TypeMaximum, model.TypeSaddle,
		model.TypeDegenerate, model.TypeError,
	}
	for _, tp := range order {
		count := summary.TypeCounts[tp]
		if count == 0 {
			continue
		}
		line := fmt.Sprintf("  %-10s %d", strings.ToLower(tp.String()), count)
		switch tp {
		case model.TypeMinimum:
			b.WriteString(SuccessStyle.Render(line))
		case model.TypeError:
			b.WriteString(ErrorStyle.Render(line))
		case model.TypeMaximum, model.TypeSaddle, model.TypeDegenerate:
			b.WriteString(InfoStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(SubtleStyle.Render(fmt.Sprintf(
		"  converged %d/%d  sign-consistency min=%.0f%% max=%.0f%%",
		summary.Converged, summary.Total,
		100*summary.MinimaSignConsistency, 100*summary.MaximaSignConsistency)))
	b.WriteString("\n")
	return b.String()
}

func renderQuality(summary aggregate.Summary) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render("Condition-number quality"))
	b.WriteString("\n")
	for _, band := range aggregate.BandOrder {
		count := summary.ConditionBands[band]
		if count == 0 {
			continue
		}
		line := fmt.Sprintf("  %-11s %d", strings.ToLower(string(band)), count)
		switch band {
		case aggregate.BandExcellent, aggregate.BandGood:
			b.WriteString(SuccessStyle.Render(line))
		case aggregate.BandAcceptable:
			b.WriteString(InfoStyle.Render(line))
		case aggregate.BandPoor, aggregate.BandCritical, aggregate.BandUnknown:
			b.WriteString(WarningStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderMinimizers(records []model.MinimizerRecord) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render("Minimizers"))
	b.WriteString("\n")
	if len(records) == 0 {
		b.WriteString(SubtleStyle.Render("  none found"))
		b.WriteString("\n")
		return b.String()
	}

	for i, rec := range records {
		b.WriteString(fmt.Sprintf("  #%d  f=%.10g  x=%s\n", i+1,
			rec.Representative.Value, formatVec(rec.Representative.X)))
		b.WriteString(SubtleStyle.Render(fmt.Sprintf(
			"      basin=%d  coverage=%d  avg-iters=%.1f  |grad|=%.2e",
			rec.BasinSize, rec.CoverageCount, rec.AvgIterations, rec.VerifiedGradientNorm)))
		b.WriteString("\n")
	}
	return b.String()
}

func formatVec(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
