package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
)

// Table names of the event store.
const (
	eventsTable       = "flow_events"
	sprintsTable      = "flow_sprints"
	integrationsTable = "flow_integrations"
)

var eventTables = []string{eventsTable, sprintsTable, integrationsTable}

const eventColumns = "event_id, org_id, kind, occurred_at, team_id, assignee, repository, pull_request_id, title, value"

// EventStoreImpl implements the EventStore interface.
type EventStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.EventStore = &EventStoreImpl{} // Compile-time check

// NewEventStore creates a new EventStore with the specified backend.
// The none backend returns a store with no events and no active integrations.
func NewEventStore(backend schema.DatabaseBackend, connStr string) (contract.EventStore, error) {
	if backend == schema.NoneBackend {
		return &EventStoreImpl{backend: backend}, nil
	}
	db, err := connect(backend, connStr, contract.GetEventDBFilePath(), eventsStore)
	if err != nil {
		return nil, err
	}
	return &EventStoreImpl{db: db, backend: backend}, nil
}

func (es *EventStoreImpl) disabled() bool {
	return es.backend == schema.NoneBackend || es.db == nil
}

func (es *EventStoreImpl) table(name string) string {
	return quoteTableName(name, es.backend)
}

// whereClause builds the shared filter of FetchEvents and ListEvents.
func whereClause(q schema.EventQuery) (string, []any) {
	conds := []string{"org_id = ?", "occurred_at >= ?", "occurred_at < ?"}
	args := []any{q.OrgID, ceilMicros(q.Window.Start), ceilMicros(q.Window.End)}

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", column, placeholders(len(values))))
		args = append(args, lo.ToAnySlice(values)...)
	}

	in("kind", lo.Map(q.Kinds, func(k schema.EventKind, _ int) string { return string(k) }))
	if q.Scope.TeamID != "" {
		conds = append(conds, "team_id = ?")
		args = append(args, q.Scope.TeamID)
	}
	in("assignee", q.Scope.Assignees)
	in("repository", q.Scope.Repositories)
	in("pull_request_id", q.Scope.PullRequestIDs)

	return strings.Join(conds, " AND "), args
}

// FetchEvents implements the EventFetcher interface.
func (es *EventStoreImpl) FetchEvents(ctx context.Context, q schema.EventQuery) ([]schema.RawEvent, error) {
	if es.disabled() {
		return []schema.RawEvent{}, nil
	}

	where, args := whereClause(q)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY occurred_at, event_id", eventColumns, es.table(eventsTable), where)
	if q.Limit > 0 {
		// One extra row tells a full result apart from a truncated one
		query += fmt.Sprintf(" LIMIT %d", q.Limit+1)
	}

	events, err := es.queryEvents(ctx, rebind(query, es.backend), args, q.Location)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(events) > q.Limit {
		return nil, fmt.Errorf("%w: more than %d events for organization %q", contract.ErrFetchTruncated, q.Limit, q.OrgID)
	}
	return events, nil
}

// ListEvents implements the EventFetcher interface.
func (es *EventStoreImpl) ListEvents(ctx context.Context, q schema.EventQuery, page schema.PageRequest) (schema.EventPage, error) {
	if es.disabled() {
		return schema.NewEventPage(nil, page, 0), nil
	}

	where, args := whereClause(q)
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", es.table(eventsTable), where)
	var total int
	if err := es.db.QueryRowContext(ctx, rebind(countQuery, es.backend), args...).Scan(&total); err != nil {
		return schema.EventPage{}, fmt.Errorf("failed to count events: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY occurred_at DESC, event_id DESC LIMIT %d OFFSET %d",
		eventColumns, es.table(eventsTable), where, page.Size, page.Offset())
	events, err := es.queryEvents(ctx, rebind(query, es.backend), args, q.Location)
	if err != nil {
		return schema.EventPage{}, err
	}
	return schema.NewEventPage(events, page, total), nil
}

func (es *EventStoreImpl) queryEvents(ctx context.Context, query string, args []any, loc *time.Location) ([]schema.RawEvent, error) {
	if loc == nil {
		loc = time.UTC
	}
	rows, err := es.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []schema.RawEvent{}
	for rows.Next() {
		var e schema.RawEvent
		var kind string
		var occurredAt int64
		if err := rows.Scan(&e.ID, &e.OrgID, &kind, &occurredAt, &e.TeamID, &e.Assignee,
			&e.Repository, &e.PullRequestID, &e.Title, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = schema.EventKind(kind)
		e.Timestamp = time.UnixMicro(occurredAt).In(loc)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// IsIntegrationActive implements the IntegrationChecker interface.
func (es *EventStoreImpl) IsIntegrationActive(ctx context.Context, orgID string, source schema.Source) (bool, error) {
	if es.disabled() {
		return false, nil
	}

	query := rebind(fmt.Sprintf("SELECT active FROM %s WHERE org_id = ? AND source = ?", es.table(integrationsTable)), es.backend)
	var active bool
	err := es.db.QueryRowContext(ctx, query, orgID, string(source)).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check integration: %w", err)
	}
	return active, nil
}

// ResolveSprintWindow implements the SprintResolver interface.
func (es *EventStoreImpl) ResolveSprintWindow(ctx context.Context, sprintID string) (schema.Window, error) {
	if es.disabled() {
		return schema.Window{}, fmt.Errorf("%w: %s", contract.ErrSprintNotFound, sprintID)
	}

	query := rebind(fmt.Sprintf("SELECT start_at, end_at FROM %s WHERE sprint_id = ?", es.table(sprintsTable)), es.backend)
	var start, end int64
	err := es.db.QueryRowContext(ctx, query, sprintID).Scan(&start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Window{}, fmt.Errorf("%w: %s", contract.ErrSprintNotFound, sprintID)
	}
	if err != nil {
		return schema.Window{}, fmt.Errorf("failed to resolve sprint: %w", err)
	}
	return schema.Window{Start: time.UnixMicro(start).UTC(), End: time.UnixMicro(end).UTC()}, nil
}

// ImportEvents implements the EventStore interface.
func (es *EventStoreImpl) ImportEvents(ctx context.Context, events []schema.RawEvent) (int, error) {
	if es.disabled() {
		return 0, nil
	}
	query := es.upsertQuery(eventsTable, strings.Split(eventColumns, ", "), []string{"event_id"})
	return es.importRows(ctx, query, len(events), func(i int) ([]any, error) {
		e := events[i]
		if e.ID == "" || e.OrgID == "" || e.Kind == "" || e.Timestamp.IsZero() {
			return nil, fmt.Errorf("event %d: id, org_id, kind and timestamp are required", i)
		}
		return []any{e.ID, e.OrgID, string(e.Kind), toMicros(e.Timestamp), e.TeamID, e.Assignee,
			e.Repository, e.PullRequestID, e.Title, e.Value}, nil
	})
}

// ImportSprints implements the EventStore interface.
func (es *EventStoreImpl) ImportSprints(ctx context.Context, sprints []schema.Sprint) (int, error) {
	if es.disabled() {
		return 0, nil
	}
	query := es.upsertQuery(sprintsTable, []string{"sprint_id", "org_id", "name", "start_at", "end_at"}, []string{"sprint_id"})
	return es.importRows(ctx, query, len(sprints), func(i int) ([]any, error) {
		s := sprints[i]
		if s.ID == "" || s.Start.IsZero() || s.End.IsZero() {
			return nil, fmt.Errorf("sprint %d: id, start and end are required", i)
		}
		if s.Start.After(s.End) {
			return nil, fmt.Errorf("sprint %s: start is after end", s.ID)
		}
		return []any{s.ID, s.OrgID, s.Name, toMicros(s.Start), toMicros(s.End)}, nil
	})
}

// ImportIntegrations implements the EventStore interface.
func (es *EventStoreImpl) ImportIntegrations(ctx context.Context, integrations []schema.Integration) (int, error) {
	if es.disabled() {
		return 0, nil
	}
	query := es.upsertQuery(integrationsTable, []string{"org_id", "source", "active"}, []string{"org_id", "source"})
	return es.importRows(ctx, query, len(integrations), func(i int) ([]any, error) {
		in := integrations[i]
		if in.OrgID == "" || in.Source == "" {
			return nil, fmt.Errorf("integration %d: org_id and source are required", i)
		}
		return []any{in.OrgID, string(in.Source), in.Active}, nil
	})
}

// importRows runs the upsert for every row in one transaction.
func (es *EventStoreImpl) importRows(ctx context.Context, query string, n int, row func(i int) ([]any, error)) (int, error) {
	tx, err := es.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < n; i++ {
		args, err := row(i)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to import row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return n, nil
}

// upsertQuery returns the backend-specific insert-or-update statement for table.
func (es *EventStoreImpl) upsertQuery(table string, columns, keys []string) string {
	quoted := es.table(table)
	cols := strings.Join(columns, ", ")
	values := placeholders(len(columns))
	updates := lo.Without(columns, keys...)

	switch es.backend {
	case schema.MySQLBackend:
		sets := lo.Map(updates, func(c string, _ int) string { return fmt.Sprintf("%s = new.%s", c, c) })
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) AS new ON DUPLICATE KEY UPDATE %s",
			quoted, cols, values, strings.Join(sets, ", "))

	case schema.PostgreSQLBackend:
		sets := lo.Map(updates, func(c string, _ int) string { return fmt.Sprintf("%s = EXCLUDED.%s", c, c) })
		return rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
			quoted, cols, values, strings.Join(keys, ", "), strings.Join(sets, ", ")), es.backend)

	default: // SQLite
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", quoted, cols, values)
	}
}

// Close closes the underlying connection.
func (es *EventStoreImpl) Close() error {
	if es.db != nil {
		return es.db.Close()
	}
	return nil
}

// GetStatus returns status information about the event store.
func (es *EventStoreImpl) GetStatus() (schema.EventStoreStatus, error) {
	status := schema.EventStoreStatus{
		Backend:    string(es.backend),
		Connected:  es.db != nil,
		TableSizes: make(map[string]int64),
	}
	if es.disabled() {
		return status, nil
	}

	row := es.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COALESCE(MIN(occurred_at), 0), COALESCE(MAX(occurred_at), 0) FROM %s", es.table(eventsTable)))
	var oldest, newest int64
	if err := row.Scan(&status.TotalEvents, &oldest, &newest); err != nil {
		return status, fmt.Errorf("failed to get event totals: %w", err)
	}
	if status.TotalEvents > 0 {
		status.OldestEventTime = time.UnixMicro(oldest).UTC()
		status.NewestEventTime = time.UnixMicro(newest).UTC()
	}

	for _, table := range eventTables {
		var count int64
		if err := es.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", es.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// toMicros stores instants as Unix microseconds so range filters compare numbers on every backend.
func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

// ceilMicros rounds a window bound up to the next stored microsecond, so a stored
// instant m lies in [start,end) exactly when ceilMicros(start) <= m < ceilMicros(end).
func ceilMicros(t time.Time) int64 {
	floor := t.Truncate(time.Microsecond)
	if floor.Before(t) {
		floor = floor.Add(time.Microsecond)
	}
	return floor.UnixMicro()
}
