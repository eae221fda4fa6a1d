package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
)

// MaxActivities сколько последних событий держит журнал. Старые вытесняются.
const MaxActivities = 1000

// journalState неизменяемый снимок. Писатель строит новый снимок и атомарно публикует его.
type journalState struct {
	activities      []domain.Activity // новые первыми, не длиннее MaxActivities
	insights        []domain.Insight
	recommendations []domain.Recommendation
	nextActivityID  int64
	nextInsightID   int
}

// Journal хранит записи, которые меняются только явным действием пользователя
// или внешним источником событий. Один писатель (mu), читатели без блокировок.
// Записи никогда не удаляются: закрытие это статус closed.
type Journal struct {
	mu    sync.Mutex
	state atomic.Pointer[journalState]
	now   func() time.Time
}

func NewJournal(activities []domain.Activity, insights []domain.Insight, recs []domain.Recommendation, now func() time.Time) (*Journal, error) {
	st := &journalState{
		activities:      newestFirst(activities),
		insights:        make([]domain.Insight, 0, len(insights)),
		recommendations: make([]domain.Recommendation, 0, len(recs)),
	}

	for _, a := range activities {
		if a.ID >= st.nextActivityID {
			st.nextActivityID = a.ID + 1
		}
	}
	for _, in := range insights {
		if _, err := domain.ParseStatus(string(in.Status)); err != nil {
			return nil, fmt.Errorf("insight %d: %w", in.ID, err)
		}
		st.insights = append(st.insights, cloneInsight(in))
		if in.ID >= st.nextInsightID {
			st.nextInsightID = in.ID + 1
		}
	}
	for _, r := range recs {
		if _, err := domain.ParseStatus(string(r.Status)); err != nil {
			return nil, fmt.Errorf("recommendation %d: %w", r.ID, err)
		}
		st.recommendations = append(st.recommendations, r)
	}
	if st.nextActivityID == 0 {
		st.nextActivityID = 1
	}
	if st.nextInsightID == 0 {
		st.nextInsightID = 1
	}

	j := &Journal{now: now}
	j.state.Store(st)
	return j, nil
}

// newestFirst упорядочивает события по убыванию времени и обрезает до MaxActivities.
// При равных timestamp позже переданное событие идёт первым.
func newestFirst(activities []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, len(activities))
	for i, a := range activities {
		out[len(out)-1-i] = a
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.After(out[b].Timestamp)
	})
	return head(out, MaxActivities)
}

func head[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// Activities возвращает до limit последних событий, новые первыми. limit <= 0: все.
func (j *Journal) Activities(limit int) []domain.Activity {
	src := head(j.state.Load().activities, limit)
	out := make([]domain.Activity, len(src))
	copy(out, src)
	return out
}

// AppendActivity добавляет событие в журнал, назначая ID при необходимости.
func (j *Journal) AppendActivity(a domain.Activity) (domain.Activity, error) {
	if err := a.Validate(); err != nil {
		return domain.Activity{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cur := j.state.Load()
	next := *cur
	if a.ID == 0 || a.ID < cur.nextActivityID {
		a.ID = cur.nextActivityID
	}
	next.nextActivityID = a.ID + 1

	// Позиция вставки: перед первым событием не новее a, так равные по времени идут от новых к старым
	at := sort.Search(len(cur.activities), func(i int) bool {
		return !cur.activities[i].Timestamp.After(a.Timestamp)
	})
	size := min(len(cur.activities)+1, MaxActivities)
	if at >= size {
		// Событие старше всего, что помещается в журнал: сдвигается только счётчик ID
		j.state.Store(&next)
		return a, nil
	}
	next.activities = make([]domain.Activity, size)
	copy(next.activities, cur.activities[:at])
	next.activities[at] = a
	copy(next.activities[at+1:], cur.activities[at:])

	j.state.Store(&next)
	return a, nil
}

// cloneInsight отвязывает срезы инсайта от опубликованного снимка.
func cloneInsight(in domain.Insight) domain.Insight {
	in.Metrics = append([]string(nil), in.Metrics...)
	in.Actions = append([]string(nil), in.Actions...)
	return in
}

func (j *Journal) Insights() []domain.Insight {
	st := j.state.Load()
	out := make([]domain.Insight, len(st.insights))
	for i, in := range st.insights {
		out[i] = cloneInsight(in)
	}
	return out
}

func (j *Journal) Insight(id int) (domain.Insight, error) {
	for _, in := range j.state.Load().insights {
		if in.ID == id {
			return cloneInsight(in), nil
		}
	}
	return domain.Insight{}, fmt.Errorf("insight %d: %w", id, domain.ErrNotFound)
}

// AddInsight регистрирует сгенерированный инсайт в статусе open.
func (j *Journal) AddInsight(in domain.Insight) domain.Insight {
	j.mu.Lock()
	defer j.mu.Unlock()

	cur := j.state.Load()
	next := *cur

	now := j.now()
	in.ID = cur.nextInsightID
	in.Status = domain.StatusOpen
	in.CreatedAt = now
	in.UpdatedAt = now
	next.nextInsightID = in.ID + 1
	next.insights = make([]domain.Insight, len(cur.insights), len(cur.insights)+1)
	copy(next.insights, cur.insights)
	next.insights = append(next.insights, cloneInsight(in))

	j.state.Store(&next)
	return cloneInsight(in)
}

// UpdateInsightStatus переводит инсайт в новый статус по правилам автомата.
func (j *Journal) UpdateInsightStatus(id int, status domain.Status) (domain.Insight, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cur := j.state.Load()
	idx := -1
	for i, in := range cur.insights {
		if in.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Insight{}, fmt.Errorf("insight %d: %w", id, domain.ErrNotFound)
	}

	updated := cur.insights[idx]
	if err := updated.Status.CanTransitionTo(status); err != nil {
		return domain.Insight{}, fmt.Errorf("insight %d: %w", id, err)
	}
	if updated.Status == status {
		return cloneInsight(updated), nil
	}
	updated.Status = status
	updated.UpdatedAt = j.now()

	next := *cur
	next.insights = make([]domain.Insight, len(cur.insights))
	copy(next.insights, cur.insights)
	next.insights[idx] = updated

	j.state.Store(&next)
	return cloneInsight(updated), nil
}

func (j *Journal) Recommendations() []domain.Recommendation {
	st := j.state.Load()
	out := make([]domain.Recommendation, len(st.recommendations))
	copy(out, st.recommendations)
	return out
}

// UpdateRecommendationStatus то же, что и для инсайтов; resolved выставляет прогресс 100.
func (j *Journal) UpdateRecommendationStatus(id int, status domain.Status) (domain.Recommendation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cur := j.state.Load()
	idx := -1
	for i, r := range cur.recommendations {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Recommendation{}, fmt.Errorf("recommendation %d: %w", id, domain.ErrNotFound)
	}

	updated := cur.recommendations[idx]
	if err := updated.Status.CanTransitionTo(status); err != nil {
		return domain.Recommendation{}, fmt.Errorf("recommendation %d: %w", id, err)
	}
	if updated.Status == status {
		return updated, nil
	}
	updated.Status = status
	updated.UpdatedAt = j.now()
	if status == domain.StatusResolved {
		updated.Progress = 100
	}

	next := *cur
	next.recommendations = make([]domain.Recommendation, len(cur.recommendations))
	copy(next.recommendations, cur.recommendations)
	next.recommendations[idx] = updated

	j.state.Store(&next)
	return updated, nil
}
