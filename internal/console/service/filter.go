package service

import (
	"strings"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/store"
)

// timeRanges сколько последних периодов (месяцев) оставить. 0: весь ряд.
var timeRanges = map[string]int{
	"1m":  1,
	"3m":  3,
	"6m":  6,
	"1y":  12,
	"12m": 12,
	"all": 0,
}

// scope фильтр запроса после разбора: только распознанные значения.
type scope struct {
	periods int
	team    *domain.Team
	project *domain.Project
	applied domain.Filter
}

// resolve разбирает фильтр. Нераспознанные значения молча игнорируются:
// отчётная поверхность деградирует до "все", а не падает.
func resolve(st *store.Store, f domain.Filter) scope {
	var sc scope

	if tr := strings.ToLower(strings.TrimSpace(f.TimeRange)); tr != "" {
		if n, ok := timeRanges[tr]; ok {
			sc.periods = n
			sc.applied.TimeRange = tr
		}
	}
	if t, ok := st.FindTeam(f.Team); ok {
		sc.team = &t
		sc.applied.Team = t.Name
	}
	if p, ok := st.FindProject(f.Project); ok {
		sc.project = &p
		sc.applied.Project = p.Name
	}
	return sc
}

func (sc scope) teams(all []domain.Team) []domain.Team {
	if sc.team == nil {
		return all
	}
	return []domain.Team{*sc.team}
}

func (sc scope) projects(all []domain.Project) []domain.Project {
	if sc.project == nil {
		return all
	}
	return []domain.Project{*sc.project}
}

func (sc scope) activities(all []domain.Activity) []domain.Activity {
	if sc.project == nil {
		return all
	}
	out := make([]domain.Activity, 0, len(all))
	for _, a := range all {
		if strings.EqualFold(a.Project, sc.project.Name) {
			out = append(out, a)
		}
	}
	return out
}
