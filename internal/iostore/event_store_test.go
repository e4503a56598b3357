package iostore

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekOne = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

func newMemoryEventStore(t *testing.T) contract.EventStore {
	t.Helper()
	store, err := NewEventStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedEvents(t *testing.T, store contract.EventStore) {
	t.Helper()
	events := []schema.RawEvent{
		{ID: "e1", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne, TeamID: "core", Assignee: "ana"},
		{ID: "e2", OrgID: "acme", Kind: schema.IssueClosed, Timestamp: weekOne.Add(26 * time.Hour), TeamID: "core", Assignee: "bo"},
		{ID: "e3", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne.AddDate(0, 0, 7), TeamID: "web", Assignee: "ana"},
		{ID: "e4", OrgID: "acme", Kind: schema.PRMerged, Timestamp: weekOne.AddDate(0, 0, 8), Repository: "api", PullRequestID: "17", Value: 12.5},
		{ID: "e5", OrgID: "other", Kind: schema.IssueOpened, Timestamp: weekOne.AddDate(0, 0, 1)},
		{ID: "e6", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne.AddDate(0, 0, 21)}, // window end is exclusive
	}
	n, err := store.ImportEvents(context.Background(), events)
	require.NoError(t, err)
	require.Equal(t, len(events), n)
}

func threeWeeks() schema.Window {
	return schema.Window{Start: weekOne, End: weekOne.AddDate(0, 0, 21)}
}

func TestEventStore_FetchEvents(t *testing.T) {
	store := newMemoryEventStore(t)
	seedEvents(t, store)
	ctx := context.Background()

	t.Run("kinds and window", func(t *testing.T) {
		events, err := store.FetchEvents(ctx, schema.EventQuery{
			OrgID:  "acme",
			Kinds:  []schema.EventKind{schema.IssueOpened, schema.IssueClosed},
			Window: threeWeeks(),
		})
		require.NoError(t, err)
		ids := make([]string, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, []string{"e1", "e2", "e3"}, ids)
		assert.True(t, events[1].Timestamp.Equal(weekOne.Add(26*time.Hour)))
		assert.Equal(t, "bo", events[1].Assignee)
	})

	t.Run("scope", func(t *testing.T) {
		events, err := store.FetchEvents(ctx, schema.EventQuery{
			OrgID:  "acme",
			Scope:  schema.Scope{TeamID: "core", Assignees: []string{"ana"}},
			Window: threeWeeks(),
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "e1", events[0].ID)

		events, err = store.FetchEvents(ctx, schema.EventQuery{
			OrgID:  "acme",
			Scope:  schema.Scope{Repositories: []string{"api"}, PullRequestIDs: []string{"17"}},
			Window: threeWeeks(),
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, 12.5, events[0].Value)
	})

	t.Run("location", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		require.NoError(t, err)
		events, err := store.FetchEvents(ctx, schema.EventQuery{OrgID: "acme", Window: threeWeeks(), Location: tokyo})
		require.NoError(t, err)
		require.NotEmpty(t, events)
		assert.Equal(t, tokyo, events[0].Timestamp.Location())
	})

	t.Run("limit", func(t *testing.T) {
		_, err := store.FetchEvents(ctx, schema.EventQuery{OrgID: "acme", Window: threeWeeks(), Limit: 3})
		assert.ErrorIs(t, err, contract.ErrFetchTruncated)

		events, err := store.FetchEvents(ctx, schema.EventQuery{OrgID: "acme", Window: threeWeeks(), Limit: 4})
		require.NoError(t, err)
		assert.Len(t, events, 4)
	})

	t.Run("empty result", func(t *testing.T) {
		events, err := store.FetchEvents(ctx, schema.EventQuery{OrgID: "nobody", Window: threeWeeks()})
		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})
}

func TestEventStore_ListEvents(t *testing.T) {
	store := newMemoryEventStore(t)
	seedEvents(t, store)

	q := schema.EventQuery{OrgID: "acme", Window: threeWeeks()}
	page, err := store.ListEvents(context.Background(), q, schema.PageRequest{Number: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Events, 3)
	assert.Equal(t, "e4", page.Events[0].ID, "newest first")

	page, err = store.ListEvents(context.Background(), q, schema.PageRequest{Number: 2, Size: 3})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "e1", page.Events[0].ID)
}

func TestEventStore_ImportUpserts(t *testing.T) {
	store := newMemoryEventStore(t)
	ctx := context.Background()

	_, err := store.ImportEvents(ctx, []schema.RawEvent{{ID: "x", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne, Title: "old"}})
	require.NoError(t, err)
	_, err = store.ImportEvents(ctx, []schema.RawEvent{{ID: "x", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne, Title: "new"}})
	require.NoError(t, err)

	events, err := store.FetchEvents(ctx, schema.EventQuery{OrgID: "acme", Window: threeWeeks()})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Title)

	_, err = store.ImportEvents(ctx, []schema.RawEvent{{ID: "y", OrgID: "acme"}})
	assert.ErrorContains(t, err, "required")
}

func TestEventStore_Sprints(t *testing.T) {
	store := newMemoryEventStore(t)
	ctx := context.Background()

	n, err := store.ImportSprints(ctx, []schema.Sprint{{ID: "s-1", OrgID: "acme", Name: "Sprint 1", Start: weekOne, End: weekOne.AddDate(0, 0, 14)}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	window, err := store.ResolveSprintWindow(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, window.Start.Equal(weekOne))
	assert.True(t, window.End.Equal(weekOne.AddDate(0, 0, 14)))

	_, err = store.ResolveSprintWindow(ctx, "missing")
	assert.ErrorIs(t, err, contract.ErrSprintNotFound)

	_, err = store.ImportSprints(ctx, []schema.Sprint{{ID: "bad", Start: weekOne, End: weekOne.AddDate(0, 0, -1)}})
	assert.ErrorContains(t, err, "start is after end")
}

func TestEventStore_Integrations(t *testing.T) {
	store := newMemoryEventStore(t)
	ctx := context.Background()

	_, err := store.ImportIntegrations(ctx, []schema.Integration{
		{OrgID: "acme", Source: schema.IssueTrackerSource, Active: true},
		{OrgID: "acme", Source: schema.CISource, Active: false},
	})
	require.NoError(t, err)

	active, err := store.IsIntegrationActive(ctx, "acme", schema.IssueTrackerSource)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = store.IsIntegrationActive(ctx, "acme", schema.CISource)
	require.NoError(t, err)
	assert.False(t, active)

	active, err = store.IsIntegrationActive(ctx, "acme", schema.SecuritySource)
	require.NoError(t, err)
	assert.False(t, active, "unknown integrations are inactive")
}

func TestEventStore_Status(t *testing.T) {
	store := newMemoryEventStore(t)
	seedEvents(t, store)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, 6, status.TotalEvents)
	assert.True(t, status.OldestEventTime.Equal(weekOne))
	assert.Equal(t, int64(6), status.TableSizes[eventsTable])
	assert.Equal(t, int64(0), status.TableSizes[sprintsTable])
}

func TestEventStore_NoneBackend(t *testing.T) {
	store, err := NewEventStore(schema.NoneBackend, "")
	require.NoError(t, err)
	ctx := context.Background()

	events, err := store.FetchEvents(ctx, schema.EventQuery{OrgID: "acme", Window: threeWeeks()})
	assert.NoError(t, err)
	assert.Empty(t, events)

	page, err := store.ListEvents(ctx, schema.EventQuery{OrgID: "acme"}, schema.PageRequest{Number: 1, Size: 10})
	assert.NoError(t, err)
	assert.Zero(t, page.TotalCount)

	active, err := store.IsIntegrationActive(ctx, "acme", schema.GitSource)
	assert.NoError(t, err)
	assert.False(t, active)

	_, err = store.ResolveSprintWindow(ctx, "s-1")
	assert.ErrorIs(t, err, contract.ErrSprintNotFound)

	n, err := store.ImportEvents(ctx, []schema.RawEvent{{ID: "x"}})
	assert.NoError(t, err)
	assert.Zero(t, n)

	status, err := store.GetStatus()
	assert.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestUpsertQuery(t *testing.T) {
	cols := []string{"org_id", "source", "active"}
	keys := []string{"org_id", "source"}

	mysqlStore := &EventStoreImpl{backend: schema.MySQLBackend}
	assert.Equal(t,
		"INSERT INTO `flow_integrations` (org_id, source, active) VALUES (?, ?, ?) AS new ON DUPLICATE KEY UPDATE active = new.active",
		mysqlStore.upsertQuery(integrationsTable, cols, keys))

	pgStore := &EventStoreImpl{backend: schema.PostgreSQLBackend}
	assert.Equal(t,
		`INSERT INTO "flow_integrations" (org_id, source, active) VALUES ($1, $2, $3) ON CONFLICT (org_id, source) DO UPDATE SET active = EXCLUDED.active`,
		pgStore.upsertQuery(integrationsTable, cols, keys))

	sqliteStore := &EventStoreImpl{backend: schema.SQLiteBackend}
	assert.Equal(t,
		`INSERT OR REPLACE INTO "flow_integrations" (org_id, source, active) VALUES (?, ?, ?)`,
		sqliteStore.upsertQuery(integrationsTable, cols, keys))
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(schema.EventQuery{
		OrgID:  "acme",
		Kinds:  []schema.EventKind{schema.PROpened, schema.PRMerged},
		Window: threeWeeks(),
		Scope:  schema.Scope{TeamID: "core", Repositories: []string{"api"}},
	})
	assert.Equal(t, "org_id = ? AND occurred_at >= ? AND occurred_at < ? AND kind IN (?, ?) AND team_id = ? AND repository IN (?)", where)
	assert.Equal(t, []any{"acme", weekOne.UnixMicro(), weekOne.AddDate(0, 0, 21).UnixMicro(), "PR_OPENED", "PR_MERGED", "core", "api"}, args)
}

func TestCeilMicros(t *testing.T) {
	assert.Equal(t, weekOne.UnixMicro(), ceilMicros(weekOne))
	assert.Equal(t, weekOne.UnixMicro()+1, ceilMicros(weekOne.Add(1)))
	assert.Equal(t, weekOne.UnixMicro()+1, ceilMicros(weekOne.Add(999)))
	assert.Equal(t, weekOne.UnixMicro()+1, ceilMicros(weekOne.Add(time.Microsecond)))
}

func TestEventStore_FetchEventsSubMicrosecondWindow(t *testing.T) {
	store := newMemoryEventStore(t)
	ctx := context.Background()
	_, err := store.ImportEvents(ctx, []schema.RawEvent{
		{ID: "before", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne},
		{ID: "inside", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne.Add(time.Microsecond)},
		{ID: "end", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: weekOne.Add(3 * time.Microsecond)},
	})
	require.NoError(t, err)

	window := schema.Window{Start: weekOne.Add(500), End: weekOne.Add(2*time.Microsecond + 500)}
	events, err := store.FetchEvents(ctx, schema.EventQuery{
		OrgID:  "acme",
		Kinds:  []schema.EventKind{schema.IssueOpened},
		Window: window,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "inside", events[0].ID)
	for _, e := range events {
		assert.True(t, window.Contains(e.Timestamp), "every fetched event lies in the window")
	}
}
