package storage

import (
	"fmt"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
)

// LogRecord is one stored operator log entry
type LogRecord struct {
	ID      int64        `json:"id"`
	Time    time.Time    `json:"time"`
	Level   amp.LogLevel `json:"level"`
	Message string       `json:"message"`
}

// LogQuery selects log entries
type LogQuery struct {
	Limit   int
	Levels  []amp.LogLevel // empty for all
	Since   *time.Time
	Contain string
}

// LogStats summarises the log
type LogStats struct {
	Stored  int            `json:"stored"`
	Total   int            `json:"total"`
	Dropped int            `json:"dropped"`
	ByLevel map[string]int `json:"by_level"`
}

// Entries returns matching entries, oldest first. With a limit the newest
// entries are kept.
func (ls *LogStore) Entries(query LogQuery) ([]LogRecord, error) {
	var args []interface{}

	sqlQuery := `
		SELECT id, timestamp, level, message
		FROM log_entries
		WHERE 1=1
	`

	if len(query.Levels) > 0 {
		sqlQuery += " AND level IN ("
		for i, level := range query.Levels {
			if i > 0 {
				sqlQuery += ", "
			}
			sqlQuery += "?"
			args = append(args, string(level))
		}
		sqlQuery += ")"
	}

	if query.Since != nil {
		sqlQuery += " AND timestamp >= ?"
		args = append(args, query.Since.UTC())
	}

	if query.Contain != "" {
		sqlQuery += " AND message LIKE ?"
		args = append(args, "%"+query.Contain+"%")
	}

	sqlQuery += " ORDER BY id DESC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := ls.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer rows.Close()

	var records []LogRecord
	for rows.Next() {
		var rec LogRecord
		var level string
		if err := rows.Scan(&rec.ID, &rec.Time, &level, &rec.Message); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		rec.Level = amp.LogLevel(level)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Recent returns the newest n entries, oldest first
func (ls *LogStore) Recent(n int) ([]LogRecord, error) {
	return ls.Entries(LogQuery{Limit: n})
}

// Count returns the number of stored entries
func (ls *LogStore) Count() (int, error) {
	var count int
	err := ls.db.QueryRow("SELECT COUNT(*) FROM log_entries").Scan(&count)
	return count, err
}

// Stats returns counters for the log
func (ls *LogStore) Stats() (*LogStats, error) {
	stats := &LogStats{ByLevel: make(map[string]int)}

	if err := ls.db.QueryRow("SELECT total, dropped FROM log_stats WHERE id = 1").
		Scan(&stats.Total, &stats.Dropped); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	rows, err := ls.db.Query("SELECT level, COUNT(*) FROM log_entries GROUP BY level")
	if err != nil {
		return nil, fmt.Errorf("failed to count levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.ByLevel[level] = count
		stats.Stored += count
	}

	return stats, rows.Err()
}
