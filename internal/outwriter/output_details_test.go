package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePage() schema.EventPage {
	ts := time.Date(2025, time.January, 7, 9, 30, 0, 0, time.UTC)
	events := []schema.RawEvent{
		{ID: "e2", OrgID: "acme", Kind: schema.IssueClosed, Timestamp: ts.Add(time.Hour), Assignee: "Samuel Huang", Repository: "api", Title: "Fix login redirect"},
		{ID: "e1", OrgID: "acme", Kind: schema.IssueOpened, Timestamp: ts, Assignee: "Jane Doe", Repository: "web", Title: "Login redirect loops forever on expired sessions", Value: 1.5},
	}
	return schema.NewEventPage(events, schema.PageRequest{Number: 1, Size: 2}, 5)
}

func TestPrintEventPageText(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, PrintEventPage(schema.IssueThroughput, samplePage(), cfg))

	out := readOutput(t, cfg)
	assert.Contains(t, out, "ISSUE_CLOSED")
	assert.Contains(t, out, "Samuel H")
	assert.Contains(t, out, "2025-01-07T09:30:00Z")
	assert.Contains(t, out, "ISSUE_THROUGHPUT: page 1 of 3 (5 events)")
	assert.Contains(t, out, "Assignees on this page: Samuel H, Jane D")
}

func TestPrintEventPageJSON(t *testing.T) {
	cfg := testConfig(t, schema.JSONOut)
	require.NoError(t, PrintEventPage(schema.IssueThroughput, samplePage(), cfg))

	var got schema.EventPage
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
	assert.Equal(t, 5, got.TotalCount)
	assert.Equal(t, 3, got.TotalPages)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "e2", got.Events[0].ID)
}

func TestWriteCSVEvents(t *testing.T) {
	fmtFloat, _ := createFormatters(1)
	var buf bytes.Buffer
	require.NoError(t, writeCSVEvents(&buf, samplePage().Events, fmtFloat))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"e1", "acme", "ISSUE_OPENED"}, records[2][:3])
	assert.Equal(t, "1.5", records[2][9])
}

func TestPrintEventPageUnsupported(t *testing.T) {
	for _, mode := range []schema.OutputMode{schema.ParquetOut, schema.PromOut} {
		cfg := testConfig(t, mode)
		err := PrintEventPage(schema.IssueThroughput, samplePage(), cfg)
		assert.ErrorContains(t, err, "not supported")
	}
}
