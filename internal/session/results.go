package session

import (
	"strings"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
)

// SuccessMarker is the literal an outcome must contain to count as a success
const SuccessMarker = "success"

// Outcome texts
const (
	OutcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeWarning = "warning"
)

// TestResult is one entry of the result log
type TestResult struct {
	Time    time.Time
	Label   string
	Outcome string
}

// Succeeded classifies the entry by substring match on SuccessMarker
func (r TestResult) Succeeded() bool {
	return strings.Contains(r.Outcome, SuccessMarker)
}

// Success builds a successful entry. detail is optional.
func Success(label, detail string) TestResult {
	outcome := OutcomeSuccess
	if detail != "" {
		outcome += ": " + detail
	}
	return TestResult{Time: time.Now(), Label: label, Outcome: outcome}
}

// Failure builds a failed entry from err
func Failure(label string, err error) TestResult {
	return TestResult{
		Time:    time.Now(),
		Label:   label,
		Outcome: outcomeFailed + ": " + sanitize(deviceapi.GetShortErrorMessage(err)),
	}
}

// Warning builds an entry for a non-fatal condition
func Warning(label string, err error) TestResult {
	return TestResult{
		Time:    time.Now(),
		Label:   label,
		Outcome: outcomeWarning + ": " + sanitize(deviceapi.GetShortErrorMessage(err)),
	}
}

// sanitize keeps error text from being misread as a success
func sanitize(msg string) string {
	return strings.ReplaceAll(msg, SuccessMarker, "succ.")
}

// Summary counts a result log
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Rate is the success percentage, 0 for an empty log
func (s Summary) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// ResultLog is the append-only, chronological test-result log. It is not
// safe for concurrent use; the owning Session serializes access.
type ResultLog struct {
	entries []TestResult
}

// Append records r, stamping it if it has no time
func (l *ResultLog) Append(r TestResult) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	l.entries = append(l.entries, r)
}

// Len returns the number of entries
func (l *ResultLog) Len() int {
	return len(l.entries)
}

// Entries returns a copy of every entry, oldest first
func (l *ResultLog) Entries() []TestResult {
	out := make([]TestResult, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns the last n entries, oldest first
func (l *ResultLog) Recent(n int) []TestResult {
	if n <= 0 {
		return nil
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]TestResult, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Last returns the newest entry
func (l *ResultLog) Last() (TestResult, bool) {
	if len(l.entries) == 0 {
		return TestResult{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Summary counts the log. Anything that is not a success is a failure.
func (l *ResultLog) Summary() Summary {
	s := Summary{Total: len(l.entries)}
	for _, r := range l.entries {
		if r.Succeeded() {
			s.Succeeded++
		}
	}
	s.Failed = s.Total - s.Succeeded
	return s
}

// Clear empties the log and records that it was cleared
func (l *ResultLog) Clear() {
	l.entries = nil
	l.Append(Success("clear results", ""))
}
