package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/andeslee444/Project-H/internal/exitcodes"
	"github.com/andeslee444/Project-H/internal/history"
)

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", "cleanup-history.db", "Path to removal history database")
	recent := flag.Int("recent", 0, "Show N most recent removal attempts")
	stats := flag.Bool("stats", false, "Show removal statistics")
	action := flag.String("action", "", "Filter by action (REMOVE, SKIP, ERROR, DRY_RUN)")
	source := flag.String("source", "", "Filter by source (list, glob, self)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	largest := flag.Int("largest", 0, "Show N largest removals")
	pruneDays := flag.Int("prune-days", 0, "Delete records older than N days")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	// Open database
	db, err := history.NewRemovalDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	// Handle different query modes
	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showRecent(db, *recent, *jsonOutput)
	case *action != "":
		showByAction(db, *action, *jsonOutput)
	case *source != "":
		showBySource(db, *source, *jsonOutput)
	case *pathPattern != "":
		showByPath(db, *pathPattern, *jsonOutput)
	case *largest > 0:
		showLargest(db, *largest, *jsonOutput)
	case *pruneDays > 0:
		pruneOld(db, *pruneDays)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  cleanup-query --recent 10           # Show 10 most recent attempts")
		fmt.Println("  cleanup-query --stats               # Show removal statistics")
		fmt.Println("  cleanup-query --action REMOVE       # Show only removals")
		fmt.Println("  cleanup-query --source glob         # Show glob-matched removals")
		fmt.Println("  cleanup-query --path '%.html'       # Show attempts on HTML files")
		fmt.Println("  cleanup-query --largest 10          # Show 10 largest removals")
	fmt.Println("  cleanup-query --prune-days 90       # Delete records older than 90 days")
		os.Exit(exitcodes.InvalidConfig)
	}
}

func showStats(db *history.RemovalDB, days int, jsonOutput bool) {
	stats, err := db.GetStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removal Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Removed:    %d\n", stats.TotalRemoved)
	fmt.Printf("Total Skipped:    %d\n", stats.TotalSkipped)
	fmt.Printf("Total Errors:     %d\n", stats.TotalErrors)
	fmt.Printf("Space Freed:      %s\n\n", formatBytes(stats.TotalBytesFreed))

	if len(stats.BySource) > 0 {
		fmt.Println("By Source:")
		for source, count := range stats.BySource {
			fmt.Printf("  %-15s %d\n", source, count)
		}
		fmt.Println()
	}

	if len(stats.ByAction) > 0 {
		fmt.Println("By Action:")
		for action, count := range stats.ByAction {
			fmt.Printf("  %-15s %d\n", action, count)
		}
	}
}

func showRecent(db *history.RemovalDB, limit int, jsonOutput bool) {
	records, err := db.GetRecent(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get recent attempts: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	printRecords(records)
}

func showByAction(db *history.RemovalDB, action string, jsonOutput bool) {
	records, err := db.GetByAction(action)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by action: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Records with action: %s\n\n", action)
	printRecords(records)
}

func showBySource(db *history.RemovalDB, source string, jsonOutput bool) {
	records, err := db.GetBySource(source)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by source: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Records with source: %s\n\n", source)
	printRecords(records)
}

func showByPath(db *history.RemovalDB, pathPattern string, jsonOutput bool) {
	records, err := db.GetByPath(pathPattern)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by path: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Attempts matching path pattern: %s\n\n", pathPattern)
	printRecords(records)
}

func showLargest(db *history.RemovalDB, limit int, jsonOutput bool) {
	records, err := db.GetLargest(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get largest removals: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Largest %d removals:\n\n", limit)
	printRecords(records)
}

func pruneOld(db *history.RemovalDB, days int) {
	deleted, err := db.DeleteOldRecords(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to prune old records: %v", err)
	}

	fmt.Printf("Deleted %d records older than %d days\n", deleted, days)

	// Reclaim the space the deleted rows held
	if err := db.Vacuum(); err != nil {
		log.Printf("WARN: Vacuum after prune failed: %v", err)
	}
}

func printRecords(records []history.RemovalRecord) {
	if len(records) == 0 {
		fmt.Println("No records found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tSource\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t------\t----\t----")

	for _, r := range records {
		timestamp := r.Timestamp.Format("2006-01-02 15:04:05")
		size := formatBytes(r.Size)
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, timestamp, r.Action, r.Source, size, r.Path)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
