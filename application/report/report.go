// Package report aggregates per-account outcomes into the run summary.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Title is the notification title.
const Title = "AnyRouter Check-in Report"

// ContentType is the notification body format.
const ContentType = "markdown"

// TimeLayout formats the execution timestamp.
const TimeLayout = "2006-01-02 15:04:05"

// Record is one account's line in the report. The zero value, with Name set,
// is a failed attempt with no message.
type Record struct {
	Name    string
	Success bool
	Message string
	Quota   decimal.Decimal
	Used    decimal.Decimal
}

// Summary is the aggregated result of a run.
type Summary struct {
	Records      []Record
	SuccessCount int
	ExecTime     time.Time
}

// Total returns the number of accounts processed.
func (s *Summary) Total() int {
	return len(s.Records)
}

// Add appends a record.
func (s *Summary) Add(r Record) {
	s.Records = append(s.Records, r)
	if r.Success {
		s.SuccessCount++
	}
}

// ShouldNotify reports whether a run is worth a notification: any failure,
// or a balance change.
func ShouldNotify(successCount, totalCount int, balanceChanged bool) bool {
	return successCount < totalCount || balanceChanged
}

// ExitCode is 0 if at least one account succeeded.
func ExitCode(successCount int) int {
	if successCount > 0 {
		return 0
	}
	return 1
}

// Render formats the summary as Markdown.
func Render(s *Summary) string {
	var b strings.Builder

	failCount := s.Total() - s.SuccessCount
	statusIcon, failIcon := "🟢", "⚪"
	if failCount > 0 {
		statusIcon, failIcon = "🔴", "⚠️"
	}

	fmt.Fprintf(&b, "### 🤖 %s\n", Title)
	fmt.Fprintf(&b, "> ⏱️ `%s`\n", s.ExecTime.Format(TimeLayout))
	b.WriteString("\n")
	b.WriteString("**📊 Summary**\n")
	fmt.Fprintf(&b, "%s Success: **%d** %s Failed: **%d**\n", statusIcon, s.SuccessCount, failIcon, failCount)
	b.WriteString("---\n")

	for _, r := range s.Records {
		icon := "❌"
		if r.Success {
			icon = "✅"
		}
		fmt.Fprintf(&b, "%s **👤 %s**\n", icon, r.Name)

		if r.Success {
			fmt.Fprintf(&b, "> 💰 Balance: **$%s**\n", r.Quota.StringFixed(2))
			fmt.Fprintf(&b, "> 📉 Used: $%s\n", r.Used.StringFixed(2))
		} else {
			msg := r.Message
			if msg == "" {
				msg = "Unknown Error"
			}
			fmt.Fprintf(&b, "> 🚫 Error: `%s`\n", codeSpan(msg))
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// codeSpan makes text safe inside a single-backtick code span.
func codeSpan(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
