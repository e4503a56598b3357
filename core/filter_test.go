package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveFilter(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit dates in time zone", func(t *testing.T) {
		filter := schema.Filter{OrgID: "acme", Start: weekOne, End: weekFour, TimeZone: "America/New_York"}
		got, err := ResolveFilter(ctx, filter, nil)
		require.NoError(t, err)
		assert.Equal(t, "America/New_York", got.TimeZone)
		assert.Equal(t, "America/New_York", got.Window.Start.Location().String())
		assert.True(t, got.Window.Start.Equal(weekOne))
		assert.True(t, got.Window.End.Equal(weekFour))
	})

	t.Run("empty time zone is UTC", func(t *testing.T) {
		got, err := ResolveFilter(ctx, threeWeekFilter(), nil)
		require.NoError(t, err)
		assert.Equal(t, "UTC", got.TimeZone)
		assert.Equal(t, time.UTC, got.Location)
	})

	t.Run("sprint replaces dates", func(t *testing.T) {
		sprints := new(contract.MockSprintResolver)
		sprint := schema.Window{Start: weekOne.AddDate(0, 0, 1), End: weekOne.AddDate(0, 0, 15)}
		sprints.On("ResolveSprintWindow", mock.Anything, "s1").Return(sprint, nil)

		filter := schema.Filter{OrgID: "acme", SprintID: "s1"}
		got, err := ResolveFilter(ctx, filter, sprints)
		require.NoError(t, err)
		assert.Equal(t, "s1", got.SprintID)
		assert.True(t, got.Window.Start.Equal(sprint.Start))
		assert.True(t, got.Window.End.Equal(sprint.End))
	})

	t.Run("sprint store failure is not a configuration problem", func(t *testing.T) {
		sprints := new(contract.MockSprintResolver)
		sprints.On("ResolveSprintWindow", mock.Anything, "s1").Return(schema.Window{}, errors.New("connection reset"))

		_, err := ResolveFilter(ctx, schema.Filter{OrgID: "acme", SprintID: "s1"}, sprints)
		var general *GeneralComputationError
		require.ErrorAs(t, err, &general)
		assert.Equal(t, schema.ResolvingFilterPhase, general.Phase)
		assert.False(t, IsExpected(err))
	})

	t.Run("sprint without resolver", func(t *testing.T) {
		_, err := ResolveFilter(ctx, schema.Filter{OrgID: "acme", SprintID: "s1"}, nil)
		assert.ErrorIs(t, err, contract.ErrSprintNotFound)
		assert.True(t, IsExpected(err))
	})

	invalid := map[string]schema.Filter{
		"missing org":      {Start: weekOne, End: weekFour},
		"missing start":    {OrgID: "acme", End: weekFour},
		"start after end":  {OrgID: "acme", Start: weekFour, End: weekOne},
		"unknown timezone": {OrgID: "acme", Start: weekOne, End: weekFour, TimeZone: "Mars/Olympus"},
	}
	for name, filter := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ResolveFilter(ctx, filter, nil)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, MetricSettingsLink, cfgErr.Link)
		})
	}
}

func TestPreviousPeriod(t *testing.T) {
	windows := []schema.Window{
		{Start: weekOne, End: weekFour},
		{Start: weekOne, End: weekOne.Add(90 * time.Minute)},
		{Start: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, w := range windows {
		r := schema.ResolvedFilter{OrgID: "acme", Window: w, Location: time.UTC}
		prev := PreviousPeriod(r)
		assert.True(t, prev.Window.End.Equal(w.Start), "previous period ends where the current starts")
		assert.Equal(t, w.Duration(), prev.Window.Duration())
		assert.Equal(t, r.OrgID, prev.OrgID)
	}
}

func TestEventQuery(t *testing.T) {
	r := schema.ResolvedFilter{
		OrgID:    "acme",
		Scope:    schema.Scope{Repositories: []string{"api"}},
		Window:   schema.Window{Start: weekOne, End: weekFour},
		Location: time.UTC,
	}
	q := eventQuery(r, issueConfig(), 100)
	assert.Equal(t, "acme", q.OrgID)
	assert.Equal(t, []string{"api"}, q.Scope.Repositories)
	assert.ElementsMatch(t, []schema.EventKind{schema.IssueOpened, schema.IssueClosed}, q.Kinds)
	assert.Equal(t, 100, q.Limit)
}
