package cleanup

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/andeslee444/Project-H/internal/config"
	"github.com/andeslee444/Project-H/internal/fsops"
	"github.com/andeslee444/Project-H/internal/history"
	"github.com/andeslee444/Project-H/internal/metrics"
	"github.com/andeslee444/Project-H/internal/safety"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger interface for structured logging in cleanup
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for cleanup metrics
type Metrics interface {
	RecordRemoval(source string, bytes int64)
	FilesSkippedTotal() prometheus.Counter
	ErrorsTotal() prometheus.Counter
}

// globalMetrics wraps package-level metrics to implement Metrics interface
type globalMetrics struct{}

func (m *globalMetrics) RecordRemoval(source string, bytes int64) {
	metrics.RecordRemoval(source, bytes)
}

func (m *globalMetrics) FilesSkippedTotal() prometheus.Counter {
	return metrics.FilesSkippedTotal
}

func (m *globalMetrics) ErrorsTotal() prometheus.Counter {
	return metrics.ErrorsTotal
}

// Summary aggregates the outcome of a cleanup run
type Summary struct {
	Removed    int
	Skipped    int
	Errors     int
	BytesFreed int64
}

// Cleaner removes the configured temporary files with per-item
// continue-on-error semantics
type Cleaner struct {
	logger    Logger
	report    io.Writer // user-facing status lines (stdout contract)
	remover   fsops.Remover
	validator *safety.Validator
	metrics   Metrics
	db        *history.RemovalDB // Database for recording removal history
	dryRun    bool
}

// NewCleaner creates a new Cleaner instance
func NewCleaner(logger *log.Logger, dryRun bool, db *history.RemovalDB) *Cleaner {
	if logger == nil {
		logger = log.Default()
	}
	return &Cleaner{
		logger:  &stdLogger{Logger: logger},
		report:  os.Stdout,
		remover: fsops.OSRemover{},
		metrics: &globalMetrics{},
		db:      db,
		dryRun:  dryRun,
	}
}

// SetRemover replaces the filesystem remover (used by tests)
func (c *Cleaner) SetRemover(r fsops.Remover) {
	c.remover = r
}

// SetValidator replaces the safety validator
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// SetReportWriter redirects the user-facing status lines
func (c *Cleaner) SetReportWriter(w io.Writer) {
	c.report = w
}

// Run executes the full cleanup: the fixed manifest, then the glob
// patterns, then (unless suppressed) the tool's own executable.
// selfPath is the running executable; empty suppresses self-removal.
func (c *Cleaner) Run(cfg *config.Config, selfPath string) (Summary, error) {
	if cfg == nil {
		return Summary{}, fmt.Errorf("nil config")
	}
	if c.validator == nil {
		c.validator = safety.NewValidator(cfg.BaseDir, nil)
	}

	start := time.Now()
	metrics.RecordRun()

	c.logger.Info("Starting cleanup run",
		"base_dir", cfg.BaseDir,
		"manifest_entries", len(cfg.Files),
		"glob_patterns", len(cfg.GlobPatterns),
		"dry_run", c.dryRun,
	)

	fmt.Fprintf(c.report, "Starting cleanup of temporary files...\n\n")

	var total Summary
	total.add(c.RemoveListed(cfg.BaseDir, cfg.Files))

	for _, pattern := range cfg.GlobPatterns {
		fmt.Fprintf(c.report, "\nRemoving %s files...\n", pattern)
		total.add(c.RemoveGlob(cfg.BaseDir, pattern))
	}

	fmt.Fprintf(c.report, "\nCleanup complete!\n")

	if cfg.RemoveSelf && selfPath != "" {
		fmt.Fprintf(c.report, "\nRemoving cleanup script...\n")
		if err := c.RemoveSelf(selfPath); err != nil {
			total.Errors++
		}
	}

	elapsed := time.Since(start).Seconds()
	metrics.RunDuration.Observe(elapsed)

	c.logger.Info("Cleanup run complete",
		"removed", total.Removed,
		"skipped", total.Skipped,
		"errors", total.Errors,
		"bytes_freed", total.BytesFreed,
		"duration_seconds", fmt.Sprintf("%.3f", elapsed),
	)

	return total, nil
}

// RemoveListed removes each manifest entry relative to baseDir.
// Absent entries are reported as skips; failures are reported and the
// loop continues.
func (c *Cleaner) RemoveListed(baseDir string, files []string) Summary {
	var sum Summary

	for _, rel := range files {
		full := filepath.Join(baseDir, rel)

		if err := c.validator.ValidateRemoveTarget(full); err != nil {
			c.reportError(&sum, history.SourceList, rel, full, 0, err)
			continue
		}

		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				c.reportSkip(&sum, history.SourceList, rel, full)
				continue
			}
			c.reportError(&sum, history.SourceList, rel, full, 0, err)
			continue
		}

		c.remove(&sum, history.SourceList, rel, full, info.Size())
	}

	return sum
}

// RemoveGlob removes every file matching pattern under baseDir.
// No existence pre-check: glob only returns existing matches.
func (c *Cleaner) RemoveGlob(baseDir string, pattern string) Summary {
	var sum Summary

	matches, err := filepath.Glob(filepath.Join(baseDir, pattern))
	if err != nil {
		// Only possible failure is a malformed pattern
		fmt.Fprintf(c.report, "✗ Error resolving pattern %s: %v\n", pattern, err)
		c.logger.Error("Bad glob pattern", "pattern", pattern, "error", err)
		c.logStructured(history.ActionError, history.SourceGlob, pattern, 0, err.Error())
		c.recordHistory(history.ActionError, history.SourceGlob, pattern, 0, err.Error())
		c.metrics.ErrorsTotal().Inc()
		sum.Errors++
		return sum
	}

	for _, match := range matches {
		rel, err := filepath.Rel(baseDir, match)
		if err != nil {
			rel = match
		}

		if err := c.validator.ValidateRemoveTarget(match); err != nil {
			c.reportError(&sum, history.SourceGlob, rel, match, 0, err)
			continue
		}

		var size int64
		if info, err := os.Stat(match); err == nil {
			size = info.Size()
		}

		c.remove(&sum, history.SourceGlob, rel, match, size)
	}

	return sum
}

// RemoveSelf removes the tool's own executable as the terminal action.
// The path comes from the runtime, not from input, so it bypasses the
// allowed-roots validator.
func (c *Cleaner) RemoveSelf(selfPath string) error {
	if c.dryRun {
		fmt.Fprintf(c.report, "[DRY RUN] Would remove cleanup script\n")
		c.logStructured(history.ActionDryRun, history.SourceSelf, selfPath, 0, "")
		c.recordHistory(history.ActionDryRun, history.SourceSelf, selfPath, 0, "")
		return nil
	}

	if err := c.remover.Remove(selfPath); err != nil {
		fmt.Fprintf(c.report, "✗ Error removing cleanup script: %v\n", err)
		c.logger.Error("Failed to remove own executable", "path", selfPath, "error", err)
		c.logStructured(history.ActionError, history.SourceSelf, selfPath, 0, err.Error())
		c.recordHistory(history.ActionError, history.SourceSelf, selfPath, 0, err.Error())
		c.metrics.ErrorsTotal().Inc()
		return err
	}

	fmt.Fprintf(c.report, "✓ Cleanup script removed\n")
	c.logStructured(history.ActionRemove, history.SourceSelf, selfPath, 0, "")
	c.recordHistory(history.ActionRemove, history.SourceSelf, selfPath, 0, "")
	return nil
}

// remove performs one removal attempt and classifies the outcome
func (c *Cleaner) remove(sum *Summary, source, display, full string, size int64) {
	if c.dryRun {
		fmt.Fprintf(c.report, "[DRY RUN] Would remove: %s\n", display)
		c.logStructured(history.ActionDryRun, source, full, size, "")
		c.recordHistory(history.ActionDryRun, source, full, size, "")
		sum.Removed++
		return
	}

	if err := c.remover.Remove(full); err != nil {
		// A file deleted between the existence check and the remove is
		// not an error, it is an expected race
		if os.IsNotExist(err) {
			c.reportSkip(sum, source, display, full)
			return
		}
		c.reportError(sum, source, display, full, size, err)
		return
	}

	fmt.Fprintf(c.report, "✓ Removed: %s\n", display)
	c.logStructured(history.ActionRemove, source, full, size, "")
	c.recordHistory(history.ActionRemove, source, full, size, "")

	sum.Removed++
	sum.BytesFreed += size

	c.metrics.RecordRemoval(source, size)
}

func (c *Cleaner) reportSkip(sum *Summary, source, display, full string) {
	fmt.Fprintf(c.report, "- Skipped (not found): %s\n", display)
	c.logStructured(history.ActionSkip, source, full, 0, "not_found")
	c.recordHistory(history.ActionSkip, source, full, 0, "not_found")
	c.metrics.FilesSkippedTotal().Inc()
	sum.Skipped++
}

func (c *Cleaner) reportError(sum *Summary, source, display, full string, size int64, err error) {
	fmt.Fprintf(c.report, "✗ Error removing %s: %v\n", display, err)
	c.logger.Error("Failed to remove", "path", full, "error", err)
	c.logStructured(history.ActionError, source, full, size, err.Error())
	c.recordHistory(history.ActionError, source, full, size, err.Error())
	c.metrics.ErrorsTotal().Inc()
	sum.Errors++
}

// recordHistory writes the attempt to the removal database when configured.
// A history write failure must never fail the cleanup.
func (c *Cleaner) recordHistory(action, source, path string, size int64, errMsg string) {
	if c.db == nil {
		return
	}
	if err := c.db.Record(action, source, path, size, errMsg); err != nil {
		c.logger.Error("Failed to record to database", "error", err)
	}
}

// logStructured logs with structured format: timestamp, action, source, path, size
func (c *Cleaner) logStructured(action, source, path string, size int64, errMsg string) {
	logEntry := fmt.Sprintf("[%s] %s source=%s path=%s size=%d",
		time.Now().UTC().Format(time.RFC3339),
		action,
		source,
		path,
		size,
	)
	if errMsg != "" {
		logEntry += fmt.Sprintf(" error=%q", errMsg)
	}
	c.logger.Info(logEntry)
}

func (s *Summary) add(other Summary) {
	s.Removed += other.Removed
	s.Skipped += other.Skipped
	s.Errors += other.Errors
	s.BytesFreed += other.BytesFreed
}
