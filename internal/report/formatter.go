// Package report renders aggregation results into the delivery formats: a
// compact single line bounded to SMS length, and a multi-line body for email
// and logs. Formatting never interprets data; absent values render as "-" and
// are always distinguishable from zeros.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"trailwatch/internal/types"
)

// MaxCompactLen bounds the compact line to a single SMS segment.
const MaxCompactLen = 160

// Formatter renders ReportResults. The zero value is ready to use.
type Formatter struct{}

// FormatCompact renders the one-line summary. Tokens, in order: stage, report
// type marker, heat, night low, rain (probability@time + amount), wind,
// thunderstorm, next-day thunderstorm outlook, fire warning. The line is
// truncated at a token boundary to stay within MaxCompactLen.
func (f Formatter) FormatCompact(res *types.ReportResult, fireWarning string) string {
	tokens := []string{
		fmt.Sprintf("%s %s:", res.StageName, typeMarker(res.ReportType)),
		"T" + maxToken(res.Extrema[types.MetricTemperature], "°C"),
		nightToken(res.Night),
		rainToken(res.Extrema[types.MetricRainProbability], res.Extrema[types.MetricRainAmount]),
		"W" + maxToken(res.Extrema[types.MetricWindSpeed], "km/h"),
		"G" + maxToken(res.Extrema[types.MetricWindGust], "km/h"),
		"S" + thresholdToken(res.Extrema[types.MetricThunderstormProbability]),
		outlookToken(res.Outlook),
	}
	if fireWarning != "" {
		tokens = append(tokens, "FIRE!")
	}
	if res.LowConfidence {
		tokens = append(tokens, "(unverified)")
	}

	line := ""
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		candidate := tok
		if line != "" {
			candidate = line + " " + tok
		}
		if utf8.RuneCountInString(candidate) > MaxCompactLen {
			break
		}
		line = candidate
	}
	return line
}

// FormatBody renders the long form used for email bodies and the preview API.
func (f Formatter) FormatBody(res *types.ReportResult, fireWarning string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s report for %s (%s)\n",
		strings.ToUpper(string(res.ReportType)[:1])+string(res.ReportType)[1:],
		res.StageName,
		res.GeneratedFor.Format("Mon 02 Jan"),
	)
	if res.LowConfidence {
		b.WriteString("NOTE: unrecognized report type, morning rules applied\n")
	}
	b.WriteString("\n")

	for _, m := range types.AllMetrics {
		r := res.Extrema[m]
		fmt.Fprintf(&b, "  %-28s %s\n", metricLabel(m)+":", describeExtrema(r, metricUnit(m)))
	}
	if res.Night != nil {
		fmt.Fprintf(&b, "  %-28s %s\n", "night low:", describeMin(*res.Night))
	}
	if res.Outlook != nil {
		fmt.Fprintf(&b, "  %-28s %s\n", "thunderstorm outlook:", describeExtrema(*res.Outlook, "%"))
	}

	b.WriteString("\nRisks:\n")
	any := false
	for _, r := range res.Risks {
		if !r.HasRisk {
			continue
		}
		any = true
		fmt.Fprintf(&b, "  ! %s: %s\n", r.Hazard, r.Description)
	}
	if !any {
		b.WriteString("  none identified\n")
	}
	for _, r := range res.Risks {
		for _, note := range r.QualityNotes {
			fmt.Fprintf(&b, "  ~ %s\n", note)
		}
	}
	if fireWarning != "" {
		fmt.Fprintf(&b, "\n%s\n", fireWarning)
	}
	return b.String()
}

func typeMarker(rt types.ReportType) string {
	switch rt {
	case types.ReportMorning:
		return "AM"
	case types.ReportEvening:
		return "PM"
	case types.ReportUpdate:
		return "UPD"
	}
	return "?"
}

// maxToken renders "32°C@14h" or "-" when the series had no data.
func maxToken(r types.ExtremaResult, unit string) string {
	if !r.HasData() {
		return "-"
	}
	return fmt.Sprintf("%.0f%s@%s", r.MaxValue, unit, hourOf(r.MaxTime))
}

// thresholdToken renders "45%@14h" when the threshold was crossed, "45%" when
// it was not, "-" when there is no data. The crossing time, not the peak
// time, is what a hiker plans around.
func thresholdToken(r types.ExtremaResult) string {
	if !r.HasData() {
		return "-"
	}
	if r.ThresholdTime != nil {
		return fmt.Sprintf("%.0f%%@%s", r.MaxValue, hourOf(r.ThresholdTime))
	}
	return fmt.Sprintf("%.0f%%", r.MaxValue)
}

// rainToken joins probability and amount: "R60%@11h/3.5mm".
func rainToken(prob, amount types.ExtremaResult) string {
	tok := "R" + thresholdToken(prob)
	if amount.HasData() {
		tok += fmt.Sprintf("/%.1fmm", amount.MaxValue)
	} else {
		tok += "/-"
	}
	return tok
}

func nightToken(night *types.ExtremaResult) string {
	if night == nil {
		return ""
	}
	if !night.HasData() {
		return "N-"
	}
	return fmt.Sprintf("N%.0f°C", night.MaxValue)
}

func outlookToken(outlook *types.ExtremaResult) string {
	if outlook == nil || !outlook.HasData() {
		return "S+1:-"
	}
	return fmt.Sprintf("S+1:%.0f%%", outlook.MaxValue)
}

func describeExtrema(r types.ExtremaResult, unit string) string {
	if !r.HasData() {
		return "no data"
	}
	s := fmt.Sprintf("max %.1f%s at %s", r.MaxValue, unit, clockOf(r.MaxTime))
	if r.ThresholdTime != nil {
		s += fmt.Sprintf(", threshold reached %s", clockOf(r.ThresholdTime))
	}
	if r.Excluded > 0 {
		s += fmt.Sprintf(" (%d samples excluded)", r.Excluded)
	}
	return s
}

func describeMin(r types.ExtremaResult) string {
	if !r.HasData() {
		return "no data"
	}
	s := fmt.Sprintf("min %.1f°C at %s", r.MaxValue, clockOf(r.MaxTime))
	if r.ThresholdTime != nil {
		s += fmt.Sprintf(", below threshold from %s", clockOf(r.ThresholdTime))
	}
	return s
}

func hourOf(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%dh", t.Hour())
}

func clockOf(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}

func metricLabel(m types.Metric) string {
	switch m {
	case types.MetricTemperature:
		return "temperature"
	case types.MetricRainProbability:
		return "rain probability"
	case types.MetricRainAmount:
		return "rain amount"
	case types.MetricWindSpeed:
		return "wind speed"
	case types.MetricWindGust:
		return "wind gusts"
	case types.MetricThunderstormProbability:
		return "thunderstorm probability"
	}
	return string(m)
}

func metricUnit(m types.Metric) string {
	switch m {
	case types.MetricTemperature:
		return "°C"
	case types.MetricRainProbability, types.MetricThunderstormProbability:
		return "%"
	case types.MetricRainAmount:
		return "mm"
	case types.MetricWindSpeed, types.MetricWindGust:
		return "km/h"
	}
	return ""
}
