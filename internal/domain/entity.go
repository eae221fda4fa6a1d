package domain

import "fmt"

// Entity общий контракт для команд и проектов: имя и доступ к скалярной метрике по ключу.
type Entity interface {
	EntityName() string
	Metric(key string) (float64, bool)
}

type Skill struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// EntityMetrics фиксированный набор скалярных метрик команды/проекта.
type EntityMetrics struct {
	DeployFrequency float64 `json:"deployFrequency"` // деплоев в месяц
	LeadTime        float64 `json:"leadTime"`        // дни
	FailureRate     float64 `json:"failureRate"`     // %
	MTTR            float64 `json:"mttr"`            // минуты
	CodeQuality     float64 `json:"codeQuality"`     // 0-100
	TestCoverage    float64 `json:"testCoverage"`    // %

	// Только у проектов
	Velocity       float64 `json:"velocity,omitempty"`
	FlowEfficiency float64 `json:"flowEfficiency,omitempty"`
	TechDebt       float64 `json:"techDebt,omitempty"`
	BugRate        float64 `json:"bugRate,omitempty"`
}

func (m EntityMetrics) lookup(key string) (float64, bool) {
	switch key {
	case "deployFrequency":
		return m.DeployFrequency, true
	case "leadTime":
		return m.LeadTime, true
	case "failureRate":
		return m.FailureRate, true
	case "mttr":
		return m.MTTR, true
	case "codeQuality":
		return m.CodeQuality, true
	case "testCoverage":
		return m.TestCoverage, true
	}
	return 0, false
}

func (m EntityMetrics) validate(owner string) error {
	checks := []struct {
		name  string
		value float64
		max   float64
	}{
		{"deployFrequency", m.DeployFrequency, -1},
		{"leadTime", m.LeadTime, -1},
		{"failureRate", m.FailureRate, 100},
		{"mttr", m.MTTR, -1},
		{"codeQuality", m.CodeQuality, 100},
		{"testCoverage", m.TestCoverage, 100},
		{"velocity", m.Velocity, -1},
		{"flowEfficiency", m.FlowEfficiency, 100},
		{"techDebt", m.TechDebt, 100},
		{"bugRate", m.BugRate, -1},
	}
	for _, c := range checks {
		if err := checkRange(owner, c.name, c.value, c.max); err != nil {
			return err
		}
	}
	return nil
}

// checkRange: значение >= 0; max < 0 означает "без верхней границы".
func checkRange(owner, name string, value, max float64) error {
	if value < 0 || (max >= 0 && value > max) {
		return fmt.Errorf("%w: %s: %s=%v is out of range", ErrInvalidInput, owner, name, value)
	}
	return nil
}

type Team struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Lead         string        `json:"lead"`
	MemberCount  int           `json:"memberCount"`
	Efficiency   float64       `json:"efficiency"`
	Velocity     float64       `json:"velocity"`
	Satisfaction float64       `json:"satisfaction"`
	QualityScore float64       `json:"qualityScore"`
	Trend        Direction     `json:"trend"`
	TrendValue   float64       `json:"trendValue"`
	Skills       []Skill       `json:"skills"`
	Metrics      EntityMetrics `json:"metrics"`
}

func (t Team) EntityName() string { return t.Name }

func (t Team) Metric(key string) (float64, bool) {
	switch key {
	case "efficiency":
		return t.Efficiency, true
	case "velocity":
		return t.Velocity, true
	case "satisfaction":
		return t.Satisfaction, true
	case "qualityScore":
		return t.QualityScore, true
	case "memberCount":
		return float64(t.MemberCount), true
	}
	return t.Metrics.lookup(key)
}

// Validate проверяет доменные диапазоны скалярных метрик команды.
func (t Team) Validate() error {
	owner := fmt.Sprintf("team %d", t.ID)
	if t.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidInput, owner)
	}
	for _, c := range []struct {
		name  string
		value float64
		max   float64
	}{
		{"efficiency", t.Efficiency, 100},
		{"velocity", t.Velocity, -1},
		{"satisfaction", t.Satisfaction, 5},
		{"qualityScore", t.QualityScore, 100},
		{"memberCount", float64(t.MemberCount), -1},
	} {
		if err := checkRange(owner, c.name, c.value, c.max); err != nil {
			return err
		}
	}
	for _, s := range t.Skills {
		if err := checkRange(owner, "skill "+s.Name, s.Value, 100); err != nil {
			return err
		}
	}
	return t.Metrics.validate(owner)
}

type Project struct {
	ID          int                     `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Status      string                  `json:"status"`
	Progress    float64                 `json:"progress"`
	StartDate   string                  `json:"startDate"`
	EndDate     string                  `json:"endDate"`
	Teams       []string                `json:"teams"`
	Lead        string                  `json:"lead"`
	Members     int                     `json:"members"`
	Health      string                  `json:"health"`
	Risk        string                  `json:"risk"`
	Priority    string                  `json:"priority"`
	Metrics     EntityMetrics           `json:"metrics"`
	Trends      map[string]MetricSeries `json:"trends"`
}

func (p Project) EntityName() string { return p.Name }

func (p Project) Metric(key string) (float64, bool) {
	switch key {
	case "progress":
		return p.Progress, true
	case "members":
		return float64(p.Members), true
	case "velocity":
		return p.Metrics.Velocity, true
	case "flowEfficiency":
		return p.Metrics.FlowEfficiency, true
	case "techDebt":
		return p.Metrics.TechDebt, true
	case "bugRate":
		return p.Metrics.BugRate, true
	}
	return p.Metrics.lookup(key)
}

// Validate проверяет диапазоны метрик и инварианты рядов трендов проекта.
func (p Project) Validate() error {
	owner := fmt.Sprintf("project %d", p.ID)
	if p.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidInput, owner)
	}
	if err := checkRange(owner, "progress", p.Progress, 100); err != nil {
		return err
	}
	if err := checkRange(owner, "members", float64(p.Members), -1); err != nil {
		return err
	}
	for _, s := range p.Trends {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
	}
	return p.Metrics.validate(owner)
}

// Clone копирует срезы и ряды, чтобы вызывающий код не мог изменить фикстуру.
func (p Project) Clone() Project {
	out := p
	out.Teams = append([]string(nil), p.Teams...)
	if p.Trends != nil {
		out.Trends = make(map[string]MetricSeries, len(p.Trends))
		for k, s := range p.Trends {
			out.Trends[k] = s.Clone()
		}
	}
	return out
}

func (t Team) Clone() Team {
	out := t
	out.Skills = append([]Skill(nil), t.Skills...)
	return out
}

type Member struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Team         string   `json:"team"`
	Role         string   `json:"role"`
	Skills       []string `json:"skills"`
	Efficiency   float64  `json:"efficiency"`
	Contribution float64  `json:"contribution"`
}
