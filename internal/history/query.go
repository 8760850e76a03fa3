package history

import (
	"database/sql"
	"time"
)

// GetRecent returns the N most recent removal attempts
func (d *RemovalDB) GetRecent(limit int) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, source, path, file_name, size, error_message
	FROM removals
	ORDER BY timestamp DESC
	LIMIT ?
	`

	return d.queryRemovals(query, limit)
}

// GetByAction returns removal attempts filtered by action type
func (d *RemovalDB) GetByAction(action string) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, source, path, file_name, size, error_message
	FROM removals
	WHERE action = ?
	ORDER BY timestamp DESC
	`

	return d.queryRemovals(query, action)
}

// GetBySource returns removal attempts filtered by candidate source
func (d *RemovalDB) GetBySource(source string) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, source, path, file_name, size, error_message
	FROM removals
	WHERE source = ?
	ORDER BY timestamp DESC
	`

	return d.queryRemovals(query, source)
}

// GetByPath returns removal attempts matching a path pattern
func (d *RemovalDB) GetByPath(pathPattern string) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, source, path, file_name, size, error_message
	FROM removals
	WHERE path LIKE ?
	ORDER BY timestamp DESC
	`

	return d.queryRemovals(query, pathPattern)
}

// GetLargest returns the N largest removals by size
func (d *RemovalDB) GetLargest(limit int) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, source, path, file_name, size, error_message
	FROM removals
	WHERE action = 'REMOVE'
	ORDER BY size DESC
	LIMIT ?
	`

	return d.queryRemovals(query, limit)
}

// GetTotalBytesFreed returns total bytes freed in a time range
func (d *RemovalDB) GetTotalBytesFreed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM removals
	WHERE action = 'REMOVE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetCountBySource returns count of removals grouped by source
func (d *RemovalDB) GetCountBySource() (map[string]int, error) {
	query := `
	SELECT source, COUNT(*)
	FROM removals
	WHERE action = 'REMOVE'
	GROUP BY source
	`

	return d.queryCounts(query)
}

// GetCountByAction returns count of attempts grouped by action
func (d *RemovalDB) GetCountByAction() (map[string]int, error) {
	query := `
	SELECT action, COUNT(*)
	FROM removals
	GROUP BY action
	`

	return d.queryCounts(query)
}

// RemovalStats holds aggregated statistics
type RemovalStats struct {
	TotalRemoved    int
	TotalSkipped    int
	TotalErrors     int
	TotalBytesFreed int64
	BySource        map[string]int
	ByAction        map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetStats returns comprehensive statistics for a time period
func (d *RemovalDB) GetStats(days int) (*RemovalStats, error) {
	since := time.Now().AddDate(0, 0, -days)
	now := time.Now()

	stats := &RemovalStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'REMOVE' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM removals
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalRemoved, &stats.TotalSkipped, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.TotalBytesFreed, err = d.GetTotalBytesFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.BySource, err = d.GetCountBySource()
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetCountByAction()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days
func (d *RemovalDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`
		DELETE FROM removals WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryRemovals is a helper function to execute queries and scan results
func (d *RemovalDB) queryRemovals(query string, args ...interface{}) ([]RemovalRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemovalRecord
	for rows.Next() {
		var r RemovalRecord
		var errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Action, &r.Source, &r.Path,
			&r.FileName, &r.Size, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		if errMsg.Valid {
			r.ErrorMessage = errMsg.String
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

// queryCounts executes a two-column (key, count) grouping query
func (d *RemovalDB) queryCounts(query string) (map[string]int, error) {
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}

	return counts, rows.Err()
}
