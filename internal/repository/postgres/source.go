package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/store"
)

// Source read-only выгрузка рядов и сущностей из Postgres.
// Инсайты и рекомендации в базе не хранятся: журнал стартует пустым и наполняется анализом.
type Source struct {
	db *sql.DB
}

func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

// Ping проверяет доступность базы при старте
func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Source) Load(ctx context.Context) (*store.Snapshot, error) {
	var (
		snap store.Snapshot
		err  error
	)

	if snap.Series, err = s.series(ctx); err != nil {
		return nil, err
	}
	if snap.Teams, err = s.teams(ctx); err != nil {
		return nil, err
	}
	if snap.Projects, err = s.projects(ctx); err != nil {
		return nil, err
	}
	if snap.Members, err = s.members(ctx); err != nil {
		return nil, err
	}
	if snap.Activities, err = s.activities(ctx); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Source) series(ctx context.Context) ([]domain.MetricSeries, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT series, period, value FROM metric_points ORDER BY series, period`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query metric points: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricSeries
	for rows.Next() {
		var (
			name string
			p    domain.MetricPoint
		)
		if err := rows.Scan(&name, &p.Period, &p.Value); err != nil {
			return nil, fmt.Errorf("postgres: scan metric point: %w", err)
		}
		// Точки отсортированы по ряду: новый ряд начинается при смене имени
		if len(out) == 0 || out[len(out)-1].Name != name {
			out = append(out, domain.MetricSeries{Name: name})
		}
		last := &out[len(out)-1]
		last.Points = append(last.Points, p)
	}
	return out, rows.Err()
}

func (s *Source) teams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lead, member_count, efficiency, velocity, satisfaction,
		       quality_score, trend, trend_value, skills, metrics
		FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query teams: %w", err)
	}
	defer rows.Close()

	var out []domain.Team
	for rows.Next() {
		var (
			t              domain.Team
			skills, metric []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Lead, &t.MemberCount, &t.Efficiency, &t.Velocity,
			&t.Satisfaction, &t.QualityScore, &t.Trend, &t.TrendValue, &skills, &metric); err != nil {
			return nil, fmt.Errorf("postgres: scan team: %w", err)
		}
		if err := decodeColumns(fmt.Sprintf("team %d", t.ID),
			column{"skills", skills, &t.Skills}, column{"metrics", metric, &t.Metrics}); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Source) projects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, status, progress, start_date, end_date, teams,
		       lead, members, health, risk, priority, metrics, trends
		FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var (
			p                      domain.Project
			teams, metric, trends []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Progress, &p.StartDate, &p.EndDate,
			&teams, &p.Lead, &p.Members, &p.Health, &p.Risk, &p.Priority, &metric, &trends); err != nil {
			return nil, fmt.Errorf("postgres: scan project: %w", err)
		}
		if err := decodeColumns(fmt.Sprintf("project %d", p.ID),
			column{"teams", teams, &p.Teams}, column{"metrics", metric, &p.Metrics}, column{"trends", trends, &p.Trends}); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Source) members(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, team, role, skills, efficiency, contribution FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var (
			m      domain.Member
			skills []byte
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Team, &m.Role, &skills, &m.Efficiency, &m.Contribution); err != nil {
			return nil, fmt.Errorf("postgres: scan member: %w", err)
		}
		if err := decodeColumns(fmt.Sprintf("member %d", m.ID), column{"skills", skills, &m.Skills}); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Source) activities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, project, description, actor, occurred_at, status
		FROM activities ORDER BY occurred_at DESC LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query activities: %w", err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Type, &a.Project, &a.Description, &a.Actor, &a.Timestamp, &a.Status); err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type column struct {
	name string
	raw  []byte
	dst  any
}

// decodeColumns разбирает JSONB-колонки одной строки.
func decodeColumns(owner string, cols ...column) error {
	for _, c := range cols {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return fmt.Errorf("postgres: %s: decode %s: %w", owner, c.name, err)
		}
	}
	return nil
}
