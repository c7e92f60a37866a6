package session

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
)

var reportTime = time.Date(2025, 3, 4, 10, 20, 30, 0, time.Local)

func sampleResults() []TestResult {
	return []TestResult{
		{Time: reportTime.Add(-2 * time.Minute), Label: "connect 192.168.1.23", Outcome: "success"},
		{Time: reportTime.Add(-1 * time.Minute), Label: "color 1", Outcome: "failed: Connection refused"},
		{Time: reportTime, Label: "color 2", Outcome: "success"},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReport(&buf, ReportData{
		SessionID:   "abc",
		GeneratedAt: reportTime,
		DeviceIP:    "192.168.1.23",
		Results:     sampleResults(),
	})
	if err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"LED Controller API Test Report\n" + strings.Repeat("=", 60) + "\n",
		"Generated: 2025-03-04 10:20:30\n",
		"Device IP: 192.168.1.23\n",
		"Total tests: 3\n",
		"Succeeded:   2\n",
		"Failed:      1\n",
		"Success rate: 66.7%\n",
		strings.Repeat("-", 60) + "\n",
		"[10:18:30] connect 192.168.1.23 - success\n",
		"[10:19:30] color 1 - failed\n",
		"[10:20:30] color 2 - success\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}

	if strings.Index(out, "color 1") > strings.Index(out, "color 2") {
		t.Error("results are not in chronological order")
	}
}

func TestWriteReport_NotConnected(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, ReportData{GeneratedAt: reportTime}); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Device IP: not connected\n") {
		t.Errorf("missing not connected header:\n%s", out)
	}
	if !strings.Contains(out, "Success rate: 0.0%\n") {
		t.Errorf("empty report rate should be 0.0%%:\n%s", out)
	}
}

func TestExportReport(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportReport(dir, ReportData{GeneratedAt: reportTime, Results: sampleResults()})
	if err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	if filepath.Base(path) != "ledbench_report_20250304_102030.txt" {
		t.Errorf("file name = %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "LED Controller API Test Report") {
		t.Errorf("unexpected report content:\n%s", data)
	}
}

func TestExportReport_Empty(t *testing.T) {
	_, err := ExportReport(t.TempDir(), ReportData{GeneratedAt: reportTime})
	if !deviceapi.IsValidationError(err) {
		t.Fatalf("ExportReport() error = %v, want validation error", err)
	}
}

func TestSession_ExportReport(t *testing.T) {
	s := New(Options{})
	s.Results().Append(Success("color 1", ""))

	path, err := s.ExportReport(t.TempDir())
	if err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "Session:   "+s.ID) {
		t.Error("report should carry the session id")
	}
	last, _ := s.Results().Last()
	if last.Label != "generate report" || !last.Succeeded() {
		t.Errorf("entry = %+v", last)
	}
}
