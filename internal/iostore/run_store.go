package iostore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
)

// Table names for run tracking.
const (
	runsTable      = "flow_runs"
	runPointsTable = "flow_run_points"
)

var runTables = []string{runsTable, runPointsTable}

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}
	db, err := connect(backend, connStr, contract.GetRunDBFilePath(), runsStore)
	if err != nil {
		return nil, err
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

func (rs *RunStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

func (rs *RunStoreImpl) table(name string) string {
	return quoteTableName(name, rs.backend)
}

// BeginRun creates a new run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, req schema.MetricRequest, requestID string) (int64, error) {
	// Skip for NoneBackend
	if rs.disabled() {
		return 0, nil
	}

	filterJSON, err := json.Marshal(req.Filter)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal filter params: %w", err)
	}

	granularity := req.Granularity
	if granularity == "" {
		granularity = schema.WeekGranularity
	}
	args := []any{requestID, string(req.Metric), string(granularity), req.Filter.OrgID,
		formatTime(startTime, rs.backend), string(filterJSON)}

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (request_id, metric, granularity, org_id, start_time, filter_params)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING run_id`, rs.table(runsTable))
		err = rs.db.QueryRow(query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (request_id, metric, granularity, org_id, start_time, filter_params)
			VALUES (?, ?, ?, ?, ?, ?)`, rs.table(runsTable))
		var result sql.Result
		result, err = rs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with the final state of the result.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, result schema.MetricResult) error {
	// Skip for NoneBackend
	if rs.disabled() {
		return nil
	}

	// First, get the start_time to calculate duration
	row := rs.db.QueryRow(rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, rs.table(runsTable)), rs.backend), runID)
	startTime, err := rs.scanTime(row)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	var windowStart, windowEnd, errorMessage any
	if result.Window != nil {
		windowStart = formatTime(result.Window.Start, rs.backend)
		windowEnd = formatTime(result.Window.End, rs.backend)
	}
	if result.Error != nil {
		errorMessage = result.Error.Message
	}

	query := rebind(fmt.Sprintf(`UPDATE %s SET state = ?, phase = ?, window_start = ?, window_end = ?,
		end_time = ?, run_duration_ms = ?, error_message = ? WHERE run_id = ?`, rs.table(runsTable)), rs.backend)
	_, err = rs.db.Exec(query, string(result.State), string(result.Phase), windowStart, windowEnd,
		formatTime(endTime, rs.backend), durationMs, errorMessage, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordPoints stores the presented points of one period of a run.
func (rs *RunStoreImpl) RecordPoints(runID int64, period string, points []schema.ChartPoint) error {
	// Skip for NoneBackend
	if rs.disabled() || len(points) == 0 {
		return nil
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin recording points: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(fmt.Sprintf(`INSERT INTO %s (run_id, period, position, label, bucket_start, bucket_end,
		value, cumulative_inflow, cumulative_outflow) VALUES (%s)`, rs.table(runPointsTable), placeholders(9)), rs.backend)
	for i, p := range points {
		_, err := tx.Exec(query, runID, period, i, p.Label, formatTime(p.Start, rs.backend), formatTime(p.End, rs.backend),
			p.Value, p.CumulativeInflow, p.CumulativeOutflow)
		if err != nil {
			return fmt.Errorf("failed to insert point %d of run %d: %w", i, runID, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStoreStatus, error) {
	status := schema.RunStoreStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}

	row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(runsTable)))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row = rs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", rs.table(runsTable)))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}

		var err error
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", rs.table(runsTable)))
		if status.LastRunTime, err = rs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", rs.table(runsTable)))
		if status.OldestRunTime, err = rs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		failed := rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE state = ?", rs.table(runsTable)), rs.backend)
		if err := rs.db.QueryRow(failed, string(schema.ErrorState)).Scan(&status.FailedRuns); err != nil {
			return status, fmt.Errorf("failed to get failed runs: %w", err)
		}
	}

	for _, table := range runTables {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	// Skip for NoneBackend
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, request_id, metric, granularity, org_id, state, phase, window_start, window_end,
		start_time, end_time, run_duration_ms, error_message, filter_params FROM %s ORDER BY run_id`, rs.table(runsTable))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord

		switch rs.backend {
		case schema.SQLiteBackend:
			var windowStart, windowEnd, endTime *string
			var startTime string
			if err := rows.Scan(&r.RunID, &r.RequestID, &r.Metric, &r.Granularity, &r.OrgID, &r.State, &r.Phase,
				&windowStart, &windowEnd, &startTime, &endTime, &r.RunDurationMs, &r.ErrorMessage, &r.FilterParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if r.StartTime, err = parseSQLiteTime(startTime); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if r.WindowStart, err = parseOptionalTime(windowStart); err != nil {
				return nil, fmt.Errorf("failed to parse window_start: %w", err)
			}
			if r.WindowEnd, err = parseOptionalTime(windowEnd); err != nil {
				return nil, fmt.Errorf("failed to parse window_end: %w", err)
			}
			if r.EndTime, err = parseOptionalTime(endTime); err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&r.RunID, &r.RequestID, &r.Metric, &r.Granularity, &r.OrgID, &r.State, &r.Phase,
				&r.WindowStart, &r.WindowEnd, &r.StartTime, &r.EndTime, &r.RunDurationMs, &r.ErrorMessage, &r.FilterParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllRunPoints retrieves all recorded points from the store.
func (rs *RunStoreImpl) GetAllRunPoints() ([]schema.RunPointRecord, error) {
	// Skip for NoneBackend
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, period, position, label, bucket_start, bucket_end, value,
		cumulative_inflow, cumulative_outflow FROM %s ORDER BY run_id, period, position`, rs.table(runPointsTable))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query run points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunPointRecord
	for rows.Next() {
		var p schema.RunPointRecord

		switch rs.backend {
		case schema.SQLiteBackend:
			var start, end string
			if err := rows.Scan(&p.RunID, &p.Period, &p.Position, &p.Label, &start, &end, &p.Value,
				&p.CumulativeInflow, &p.CumulativeOutflow); err != nil {
				return nil, fmt.Errorf("failed to scan run point: %w", err)
			}
			if p.BucketStart, err = parseSQLiteTime(start); err != nil {
				return nil, fmt.Errorf("failed to parse bucket_start: %w", err)
			}
			if p.BucketEnd, err = parseSQLiteTime(end); err != nil {
				return nil, fmt.Errorf("failed to parse bucket_end: %w", err)
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&p.RunID, &p.Period, &p.Position, &p.Label, &p.BucketStart, &p.BucketEnd, &p.Value,
				&p.CumulativeInflow, &p.CumulativeOutflow); err != nil {
				return nil, fmt.Errorf("failed to scan run point: %w", err)
			}
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run points: %w", err)
	}
	return results, nil
}

// scanTime reads a single time column in the backend's storage format.
func (rs *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if rs.backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(&s); err != nil {
			return time.Time{}, err
		}
		return parseSQLiteTime(s)
	}
	var t time.Time
	err := row.Scan(&t)
	return t, err
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseSQLiteTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
