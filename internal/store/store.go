package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
)

// Store read-only контекст данных: ряды метрик и сущности, загруженные один раз при старте.
// После New ничего не мутирует, поэтому конкурентное чтение не требует блокировок.
// Изменяемые записи (статусы инсайтов, журнал активностей) живут в Journal.
type Store struct {
	series   map[string]domain.MetricSeries
	order    []string
	teams    []domain.Team
	projects []domain.Project
	members  []domain.Member
	journal  *Journal
}

// Load забирает снапшот из источника и строит Store.
func Load(ctx context.Context, src Source) (*Store, error) {
	snap, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: failed to load snapshot: %w", err)
	}
	return New(snap)
}

// New валидирует снапшот и копирует его внутрь. Снапшот после вызова можно менять.
func New(snap *Snapshot) (*Store, error) {
	if snap == nil {
		return nil, fmt.Errorf("store: %w: nil snapshot", domain.ErrInvalidInput)
	}

	s := &Store{
		series: make(map[string]domain.MetricSeries, len(snap.Series)),
	}

	// 1. Ряды: уникальные имена, строго возрастающие периоды
	for _, ser := range snap.Series {
		if err := ser.Validate(); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		if _, dup := s.series[ser.Name]; dup {
			return nil, fmt.Errorf("store: %w: duplicate series %q", domain.ErrInvalidInput, ser.Name)
		}
		s.series[ser.Name] = ser.Clone()
		s.order = append(s.order, ser.Name)
	}

	// 2. Сущности: доменные диапазоны и уникальные ID
	teamIDs := make(map[int]struct{}, len(snap.Teams))
	for _, t := range snap.Teams {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		if _, dup := teamIDs[t.ID]; dup {
			return nil, fmt.Errorf("store: %w: duplicate team id %d", domain.ErrInvalidInput, t.ID)
		}
		teamIDs[t.ID] = struct{}{}
		s.teams = append(s.teams, t.Clone())
	}

	projectIDs := make(map[int]struct{}, len(snap.Projects))
	for _, p := range snap.Projects {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		if _, dup := projectIDs[p.ID]; dup {
			return nil, fmt.Errorf("store: %w: duplicate project id %d", domain.ErrInvalidInput, p.ID)
		}
		projectIDs[p.ID] = struct{}{}
		s.projects = append(s.projects, p.Clone())
	}

	s.members = append(s.members, snap.Members...)

	// 3. Изменяемая часть
	j, err := NewJournal(snap.Activities, snap.Insights, snap.Recommendations, time.Now)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	s.journal = j

	return s, nil
}

// Series возвращает копию ряда по имени.
func (s *Store) Series(name string) (domain.MetricSeries, error) {
	ser, ok := s.series[name]
	if !ok {
		return domain.MetricSeries{}, fmt.Errorf("series %q: %w", name, domain.ErrNotFound)
	}
	return ser.Clone(), nil
}

// SeriesNames имена рядов в порядке загрузки.
func (s *Store) SeriesNames() []string {
	return append([]string(nil), s.order...)
}

func (s *Store) Teams() []domain.Team {
	out := make([]domain.Team, len(s.teams))
	for i, t := range s.teams {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) Team(id int) (domain.Team, error) {
	for _, t := range s.teams {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return domain.Team{}, fmt.Errorf("team %d: %w", id, domain.ErrNotFound)
}

// FindTeam ищет команду по числовому ID или по имени без учёта регистра.
func (s *Store) FindTeam(ref string) (domain.Team, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Team{}, false
	}
	id, idErr := strconv.Atoi(ref)
	for _, t := range s.teams {
		if (idErr == nil && t.ID == id) || strings.EqualFold(t.Name, ref) {
			return t.Clone(), true
		}
	}
	return domain.Team{}, false
}

func (s *Store) Projects() []domain.Project {
	out := make([]domain.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = p.Clone()
	}
	return out
}

func (s *Store) Project(id int) (domain.Project, error) {
	for _, p := range s.projects {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return domain.Project{}, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
}

// FindProject аналог FindTeam для проектов.
func (s *Store) FindProject(ref string) (domain.Project, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Project{}, false
	}
	id, idErr := strconv.Atoi(ref)
	for _, p := range s.projects {
		if (idErr == nil && p.ID == id) || strings.EqualFold(p.Name, ref) {
			return p.Clone(), true
		}
	}
	return domain.Project{}, false
}

func (s *Store) Members() []domain.Member {
	out := make([]domain.Member, len(s.members))
	for i, m := range s.members {
		m.Skills = append([]string(nil), m.Skills...)
		out[i] = m
	}
	return out
}

// Journal изменяемая часть данных (copy-on-write).
func (s *Store) Journal() *Journal {
	return s.journal
}
