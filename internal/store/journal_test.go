package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/devpulse/internal/domain"
)

var fixedNow = time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	base := time.Date(2023, 11, 28, 0, 0, 0, 0, time.UTC)
	j, err := NewJournal(
		[]domain.Activity{
			{ID: 1, Type: domain.ActivityCode, Description: "old", Timestamp: base},
			{ID: 2, Type: domain.ActivityDeployment, Description: "new", Timestamp: base.Add(time.Hour)},
		},
		[]domain.Insight{
			{ID: 1, Title: "a", Status: domain.StatusOpen},
			{ID: 2, Title: "b", Status: domain.StatusInProgress},
		},
		[]domain.Recommendation{
			{ID: 1, Title: "r", Status: domain.StatusInProgress, Progress: 40},
		},
		func() time.Time { return fixedNow },
	)
	require.NoError(t, err)
	return j
}

func TestActivitiesNewestFirst(t *testing.T) {
	j := newJournal(t)

	got := j.Activities(0)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Description)

	added, err := j.AppendActivity(domain.Activity{
		Type: domain.ActivityTest, Description: "latest", Timestamp: fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), added.ID)

	got = j.Activities(1)
	require.Len(t, got, 1)
	assert.Equal(t, "latest", got[0].Description)
}

func TestAppendActivityKeepsTimeOrder(t *testing.T) {
	j := newJournal(t)
	base := time.Date(2023, 11, 28, 0, 0, 0, 0, time.UTC)

	// Опоздавшее событие встаёт между существующими, а не в начало
	_, err := j.AppendActivity(domain.Activity{Type: domain.ActivityTest, Description: "late", Timestamp: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	// Равное по времени с "new", но добавленное позже, идёт раньше
	_, err = j.AppendActivity(domain.Activity{Type: domain.ActivityCode, Description: "tie", Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)

	var order []string
	for _, a := range j.Activities(0) {
		order = append(order, a.Description)
	}
	assert.Equal(t, []string{"tie", "new", "late", "old"}, order)
}

func TestActivitiesAreCapped(t *testing.T) {
	j, err := NewJournal(nil, nil, nil, time.Now)
	require.NoError(t, err)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxActivities+10; i++ {
		_, err := j.AppendActivity(domain.Activity{
			Type: domain.ActivityCode, Description: "commit", Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	got := j.Activities(0)
	require.Len(t, got, MaxActivities)
	assert.Equal(t, int64(MaxActivities+10), got[0].ID)
	assert.Equal(t, int64(11), got[len(got)-1].ID)

	// Событие старше окна не попадает в журнал, но ID не переиспользуются
	old, err := j.AppendActivity(domain.Activity{Type: domain.ActivityCode, Description: "ancient", Timestamp: base.Add(-time.Hour)})
	require.NoError(t, err)
	next, err := j.AppendActivity(domain.Activity{Type: domain.ActivityCode, Description: "fresh", Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, old.ID+1, next.ID)
	assert.Len(t, j.Activities(0), MaxActivities)
	assert.Equal(t, "fresh", j.Activities(1)[0].Description)
}

func TestAppendActivityRejectsInvalid(t *testing.T) {
	_, err := newJournal(t).AppendActivity(domain.Activity{Type: "party"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestActivitiesSnapshotIsStable(t *testing.T) {
	j := newJournal(t)
	before := j.Activities(0)

	_, err := j.AppendActivity(domain.Activity{Type: domain.ActivityTest, Description: "x", Timestamp: fixedNow})
	require.NoError(t, err)

	assert.Len(t, before, 2)
	assert.Len(t, j.Activities(0), 3)
}

func TestInsightLifecycle(t *testing.T) {
	j := newJournal(t)

	in, err := j.UpdateInsightStatus(1, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, in.Status)
	assert.Equal(t, fixedNow, in.UpdatedAt)

	in, err = j.UpdateInsightStatus(1, domain.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, in.Status)

	_, err = j.UpdateInsightStatus(1, domain.StatusOpen)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = j.UpdateInsightStatus(99, domain.StatusClosed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Повтор того же статуса ничего не меняет
	same, err := j.UpdateInsightStatus(2, domain.StatusInProgress)
	require.NoError(t, err)
	assert.True(t, same.UpdatedAt.IsZero())

	stored, err := j.Insight(1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, stored.Status)
	assert.Len(t, j.Insights(), 2)
}

func TestInsightReadsAreCopies(t *testing.T) {
	j, err := NewJournal(nil, []domain.Insight{
		{ID: 1, Title: "a", Status: domain.StatusOpen, Metrics: []string{"leadTime"}, Actions: []string{"split PRs"}},
	}, nil, time.Now)
	require.NoError(t, err)

	list := j.Insights()
	list[0].Metrics[0] = "mutated"
	list[0].Actions[0] = "mutated"

	one, err := j.Insight(1)
	require.NoError(t, err)
	one.Metrics[0] = "mutated"

	updated, err := j.UpdateInsightStatus(1, domain.StatusInProgress)
	require.NoError(t, err)
	updated.Actions[0] = "mutated"

	added := j.AddInsight(domain.Insight{Title: "b", Metrics: []string{"wipTrend"}})
	added.Metrics[0] = "mutated"

	stored, err := j.Insight(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"leadTime"}, stored.Metrics)
	assert.Equal(t, []string{"split PRs"}, stored.Actions)
	stored, err = j.Insight(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"wipTrend"}, stored.Metrics)
}

func TestAddInsight(t *testing.T) {
	j := newJournal(t)

	in := j.AddInsight(domain.Insight{Title: "generated", Status: domain.StatusResolved})
	assert.Equal(t, 3, in.ID)
	assert.Equal(t, domain.StatusOpen, in.Status)
	assert.Equal(t, fixedNow, in.CreatedAt)
	assert.Len(t, j.Insights(), 3)
}

func TestRecommendationResolveSetsProgress(t *testing.T) {
	j := newJournal(t)

	r, err := j.UpdateRecommendationStatus(1, domain.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.Progress)
	assert.Equal(t, domain.StatusResolved, j.Recommendations()[0].Status)
}

func TestNewJournalRejectsUnknownStatus(t *testing.T) {
	_, err := NewJournal(nil, []domain.Insight{{ID: 1, Status: "weird"}}, nil, time.Now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestJournalConcurrentAppends(t *testing.T) {
	j := newJournal(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = j.AppendActivity(domain.Activity{Type: domain.ActivityCode, Description: "c", Timestamp: fixedNow})
			_ = j.Activities(5)
		}()
	}
	wg.Wait()

	all := j.Activities(0)
	assert.Len(t, all, 52)
	seen := make(map[int64]bool, len(all))
	for _, a := range all {
		assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
		seen[a.ID] = true
	}
}
