package cleanup

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andeslee444/Project-H/internal/config"
	"github.com/andeslee444/Project-H/internal/fsops"
	"github.com/andeslee444/Project-H/internal/metrics"
	"github.com/andeslee444/Project-H/internal/safety"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("temporary"), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// TestDryRunNeverRemoves proves the dry-run contract:
// When dryRun=true, ZERO remove syscalls must occur
func TestDryRunNeverRemoves(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.sql"))
	writeFile(t, filepath.Join(tmpDir, "test-x.html"))

	cfg := &config.Config{
		BaseDir:      tmpDir,
		Files:        []string{"a.sql", "missing.sql"},
		GlobPatterns: []string{"test-*.html"},
		RemoveSelf:   true,
	}

	fake := &fsops.FakeRemover{}

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), true, nil) // dryRun=true
	cleaner.SetRemover(fake)
	cleaner.SetReportWriter(&report)

	if _, err := cleaner.Run(cfg, filepath.Join(tmpDir, "self")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// DRY-RUN CONTRACT: Assert ZERO remove calls occurred
	if len(fake.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: Expected 0 remove calls, got %d: %v",
			len(fake.Calls), fake.Calls)
	}

	// The self-removal pass must announce itself without removing
	if !strings.Contains(report.String(), "[DRY RUN] Would remove cleanup script") {
		t.Errorf("Missing dry-run self-removal line, got:\n%s", report.String())
	}

	// Files must still exist
	if _, err := os.Stat(filepath.Join(tmpDir, "a.sql")); err != nil {
		t.Errorf("Dry run removed a.sql: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "test-x.html")); err != nil {
		t.Errorf("Dry run removed test-x.html: %v", err)
	}
}

// TestManifestRemovalAndSkip verifies the per-entry contract:
// existing entries are removed with a success line, absent entries skipped
func TestManifestRemovalAndSkip(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.sql"))

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetValidator(safety.NewValidator(tmpDir, nil))
	cleaner.SetReportWriter(&report)

	sum := cleaner.RemoveListed(tmpDir, []string{"a.sql", "b.sql"})

	if sum.Removed != 1 {
		t.Errorf("Expected 1 removed, got %d", sum.Removed)
	}
	if sum.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", sum.Skipped)
	}
	if sum.Errors != 0 {
		t.Errorf("Expected 0 errors, got %d", sum.Errors)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "a.sql")); !os.IsNotExist(err) {
		t.Errorf("a.sql should have been removed")
	}

	out := report.String()
	if !strings.Contains(out, "✓ Removed: a.sql") {
		t.Errorf("Missing success marker for a.sql, got:\n%s", out)
	}
	if !strings.Contains(out, "- Skipped (not found): b.sql") {
		t.Errorf("Missing skip marker for b.sql, got:\n%s", out)
	}
}

// TestSecondRunReportsOnlySkips verifies idempotence with respect to removal
func TestSecondRunReportsOnlySkips(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.sql"))
	writeFile(t, filepath.Join(tmpDir, "b.sql"))

	files := []string{"a.sql", "b.sql"}
	validator := safety.NewValidator(tmpDir, nil)

	first := NewCleaner(log.Default(), false, nil)
	first.SetValidator(validator)
	first.SetReportWriter(&bytes.Buffer{})
	if sum := first.RemoveListed(tmpDir, files); sum.Removed != 2 {
		t.Fatalf("First run: expected 2 removed, got %d", sum.Removed)
	}

	var report bytes.Buffer
	second := NewCleaner(log.Default(), false, nil)
	second.SetValidator(validator)
	second.SetReportWriter(&report)
	sum := second.RemoveListed(tmpDir, files)

	if sum.Removed != 0 || sum.Skipped != 2 || sum.Errors != 0 {
		t.Errorf("Second run: expected only skips, got removed=%d skipped=%d errors=%d",
			sum.Removed, sum.Skipped, sum.Errors)
	}
	if strings.Contains(report.String(), "✓ Removed") {
		t.Errorf("Second run printed a success marker:\n%s", report.String())
	}
}

// TestGlobRemovesOnlyMatches verifies non-matching files are untouched
func TestGlobRemovesOnlyMatches(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "test-x.html"))
	writeFile(t, filepath.Join(tmpDir, "test-y.html"))
	writeFile(t, filepath.Join(tmpDir, "keep.html"))

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetValidator(safety.NewValidator(tmpDir, nil))
	cleaner.SetReportWriter(&report)

	sum := cleaner.RemoveGlob(tmpDir, "test-*.html")

	if sum.Removed != 2 {
		t.Errorf("Expected 2 removed, got %d", sum.Removed)
	}
	for _, name := range []string{"test-x.html", "test-y.html"} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", name)
		}
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "keep.html")); err != nil {
		t.Errorf("keep.html should be untouched: %v", err)
	}
}

// TestErrorDoesNotStopRun verifies continue-on-error semantics
func TestErrorDoesNotStopRun(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.sql"))
	writeFile(t, filepath.Join(tmpDir, "b.sql"))

	fake := &fsops.FakeRemover{
		FailOn: map[string]error{
			filepath.Join(tmpDir, "a.sql"): errors.New("permission denied"),
		},
	}

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetRemover(fake)
	cleaner.SetValidator(safety.NewValidator(tmpDir, nil))
	cleaner.SetReportWriter(&report)

	sum := cleaner.RemoveListed(tmpDir, []string{"a.sql", "b.sql"})

	if len(fake.Calls) != 2 {
		t.Errorf("Expected the loop to continue past the failure, got calls: %v", fake.Calls)
	}
	if sum.Errors != 1 || sum.Removed != 1 {
		t.Errorf("Expected 1 error and 1 removed, got errors=%d removed=%d", sum.Errors, sum.Removed)
	}
	if !strings.Contains(report.String(), "✗ Error removing a.sql: permission denied") {
		t.Errorf("Missing error marker, got:\n%s", report.String())
	}
}

// TestRemoveNotFoundRaceIsSkip verifies a file vanishing between the
// existence check and the remove is reported as a skip, not an error
func TestRemoveNotFoundRaceIsSkip(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.sql"))

	fake := &fsops.FakeRemover{
		FailOn: map[string]error{
			filepath.Join(tmpDir, "a.sql"): os.ErrNotExist,
		},
	}

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetRemover(fake)
	cleaner.SetValidator(safety.NewValidator(tmpDir, nil))
	cleaner.SetReportWriter(&report)

	sum := cleaner.RemoveListed(tmpDir, []string{"a.sql"})

	if sum.Errors != 0 || sum.Skipped != 1 {
		t.Errorf("Expected not-found race to count as skip, got errors=%d skipped=%d",
			sum.Errors, sum.Skipped)
	}
}

// TestValidatorBlocksOutsideBase proves validator integration works
func TestValidatorBlocksOutsideBase(t *testing.T) {
	allowedDir := t.TempDir()
	otherDir := t.TempDir()
	writeFile(t, filepath.Join(otherDir, "a.sql"))

	fake := &fsops.FakeRemover{}

	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetRemover(fake)
	cleaner.SetValidator(safety.NewValidator(allowedDir, nil))
	cleaner.SetReportWriter(&bytes.Buffer{})

	sum := cleaner.RemoveListed(otherDir, []string{"a.sql"})

	if len(fake.Calls) != 0 {
		t.Errorf("SAFETY VIOLATION: Validator should have blocked the target, got calls: %v", fake.Calls)
	}
	if sum.Errors != 1 || sum.Removed != 0 {
		t.Errorf("Expected 1 blocked error, got errors=%d removed=%d", sum.Errors, sum.Removed)
	}
}

// TestRemoveSelf verifies the terminal self-removal action
func TestRemoveSelf(t *testing.T) {
	tmpDir := t.TempDir()
	selfPath := filepath.Join(tmpDir, "cleanup")
	writeFile(t, selfPath)

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetReportWriter(&report)

	if err := cleaner.RemoveSelf(selfPath); err != nil {
		t.Fatalf("RemoveSelf failed: %v", err)
	}
	if _, err := os.Stat(selfPath); !os.IsNotExist(err) {
		t.Errorf("Executable should have been removed")
	}
	if !strings.Contains(report.String(), "✓ Cleanup script removed") {
		t.Errorf("Missing self-removal success line, got:\n%s", report.String())
	}
}

// TestRunScenario covers the full run: one manifest file, one glob match,
// one absent manifest entry, then self-removal
func TestRunScenario(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.sql"))
	writeFile(t, filepath.Join(tmpDir, "test-x.html"))
	selfPath := filepath.Join(tmpDir, "cleanup-bin")
	writeFile(t, selfPath)

	cfg := &config.Config{
		BaseDir:      tmpDir,
		Files:        []string{"a.sql", "b.sql"},
		GlobPatterns: []string{"test-*.html"},
		RemoveSelf:   true,
	}

	var report bytes.Buffer
	cleaner := NewCleaner(log.Default(), false, nil)
	cleaner.SetReportWriter(&report)

	sum, err := cleaner.Run(cfg, selfPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Removed != 2 || sum.Skipped != 1 || sum.Errors != 0 {
		t.Errorf("Unexpected summary: removed=%d skipped=%d errors=%d",
			sum.Removed, sum.Skipped, sum.Errors)
	}

	for _, name := range []string{"a.sql", "test-x.html"} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", name)
		}
	}
	if _, err := os.Stat(selfPath); !os.IsNotExist(err) {
		t.Errorf("Executable should have been removed")
	}

	out := report.String()
	for _, want := range []string{
		"Starting cleanup of temporary files...",
		"✓ Removed: a.sql",
		"- Skipped (not found): b.sql",
		"Removing test-*.html files...",
		"✓ Removed: test-x.html",
		"Cleanup complete!",
		"Removing cleanup script...",
		"✓ Cleanup script removed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q, got:\n%s", want, out)
		}
	}
}
