package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
)

const (
	reportTitle      = "LED Controller API Test Report"
	reportRuleWidth  = 60
	reportTimeLayout = "2006-01-02 15:04:05"
	entryTimeLayout  = "15:04:05"
)

// ReportData is everything a report is rendered from
type ReportData struct {
	SessionID   string
	GeneratedAt time.Time
	// DeviceIP is empty when no device is connected
	DeviceIP string
	Results  []TestResult
}

// ReportData snapshots the session for a report generated at now
func (s *Session) ReportData(now time.Time) ReportData {
	data := ReportData{
		SessionID:   s.ID,
		GeneratedAt: now,
		Results:     s.log.Entries(),
	}
	if s.conn != nil {
		data.DeviceIP = s.conn.IP
	}
	return data
}

// WriteReport renders data as plain text
func WriteReport(w io.Writer, data ReportData) error {
	bw := bufio.NewWriter(w)

	heavy := strings.Repeat("=", reportRuleWidth)
	light := strings.Repeat("-", reportRuleWidth)

	device := data.DeviceIP
	if device == "" {
		device = "not connected"
	}

	var log ResultLog
	for _, r := range data.Results {
		log.Append(r)
	}
	summary := log.Summary()

	fmt.Fprintln(bw, reportTitle)
	fmt.Fprintln(bw, heavy)
	fmt.Fprintf(bw, "Generated: %s\n", data.GeneratedAt.Format(reportTimeLayout))
	fmt.Fprintf(bw, "Device IP: %s\n", device)
	if data.SessionID != "" {
		fmt.Fprintf(bw, "Session:   %s\n", data.SessionID)
	}
	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Summary:")
	fmt.Fprintf(bw, "Total tests: %d\n", summary.Total)
	fmt.Fprintf(bw, "Succeeded:   %d\n", summary.Succeeded)
	fmt.Fprintf(bw, "Failed:      %d\n", summary.Failed)
	fmt.Fprintf(bw, "Success rate: %.1f%%\n", summary.Rate())
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Results:")
	fmt.Fprintln(bw, light)
	for _, r := range data.Results {
		status := "failed"
		if r.Succeeded() {
			status = "success"
		}
		fmt.Fprintf(bw, "[%s] %s - %s\n", r.Time.Format(entryTimeLayout), r.Label, status)
	}

	return bw.Flush()
}

// ReportFilename is the timestamped file name a report generated at t gets
func ReportFilename(t time.Time) string {
	return fmt.Sprintf("ledbench_report_%s.txt", t.Format("20060102_150405"))
}

// ExportReport writes data to a timestamped file in dir and returns its path.
// An empty log is rejected.
func ExportReport(dir string, data ReportData) (string, error) {
	if len(data.Results) == 0 {
		return "", deviceapi.NewValidationError("no test results to report")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, ReportFilename(data.GeneratedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	if err := WriteReport(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// ExportReport writes the session's report into dir and logs the outcome
func (s *Session) ExportReport(dir string) (string, error) {
	path, err := ExportReport(dir, s.ReportData(time.Now()))
	if err != nil {
		if deviceapi.IsValidationError(err) {
			return "", err
		}
		s.log.Append(Failure("generate report", err))
		return "", err
	}
	s.log.Append(Success("generate report", filepath.Base(path)))
	return path, nil
}
