// Package fixtures статический источник данных дашборда.
// Все значения демонстрационные, реальный сбор метрик подключается через store.Source.
package fixtures

import (
	"context"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/store"
)

// Source отдаёт свежую копию фикстур при каждом Load.
type Source struct{}

func (Source) Load(ctx context.Context) (*store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Snapshot(), nil
}

var months = []string{"2023-06", "2023-07", "2023-08", "2023-09", "2023-10", "2023-11"}

func series(name string, periods []string, values ...float64) domain.MetricSeries {
	s := domain.MetricSeries{Name: name, Points: make([]domain.MetricPoint, len(values))}
	for i, v := range values {
		s.Points[i] = domain.MetricPoint{Period: periods[len(periods)-len(values)+i], Value: v}
	}
	return s
}

func ts(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}

// Snapshot строит полный набор фикстур.
func Snapshot() *store.Snapshot {
	return &store.Snapshot{
		Series: []domain.MetricSeries{
			series(domain.MetricDeploymentFrequency, months, 8.2, 9.5, 10.8, 12.3, 14.5, 15.2),
			series(domain.MetricLeadTime, months, 3.8, 3.5, 3.2, 2.8, 2.5, 2.2),
			series(domain.MetricChangeFailureRate, months, 4.8, 4.5, 4.2, 3.8, 3.5, 3.2),
			series(domain.MetricTimeToRestore, months, 65, 58, 52, 48, 42, 38),
			series(domain.MetricFlowEfficiency, months, 52, 55, 58, 62, 65, 68),
			series(domain.MetricWIP, months, 28, 26, 24, 22, 20, 18),
			series(domain.MetricCycleTime, months, 12.5, 11.8, 10.5, 9.8, 9.2, 8.5),
			series(domain.MetricThroughput, months, 85, 92, 98, 105, 112, 118),
		},
		Teams:           teams(),
		Projects:        projects(),
		Members:         members(),
		Activities:      activities(),
		Insights:        insights(),
		Recommendations: recommendations(),
	}
}

func teams() []domain.Team {
	return []domain.Team{
		{
			ID: 1, Name: "Frontend", Lead: "Zhang San", MemberCount: 8,
			Efficiency: 85, Velocity: 32, Satisfaction: 4.2, QualityScore: 88,
			Trend: domain.DirectionUp, TrendValue: 5.2,
			Skills: []domain.Skill{{Name: "React", Value: 90}, {Name: "Vue", Value: 85}, {Name: "Angular", Value: 70}, {Name: "TypeScript", Value: 80}, {Name: "CSS/SCSS", Value: 92}},
			Metrics: domain.EntityMetrics{
				DeployFrequency: 14.2, LeadTime: 1.8, FailureRate: 2.5, MTTR: 38, CodeQuality: 88, TestCoverage: 82,
			},
		},
		{
			ID: 2, Name: "Backend", Lead: "Li Si", MemberCount: 10,
			Efficiency: 78, Velocity: 28, Satisfaction: 4.0, QualityScore: 82,
			Trend: domain.DirectionUp, TrendValue: 3.1,
			Skills: []domain.Skill{{Name: "Java", Value: 92}, {Name: "Spring", Value: 88}, {Name: "Node.js", Value: 75}, {Name: "SQL", Value: 85}, {Name: "NoSQL", Value: 78}},
			Metrics: domain.EntityMetrics{
				DeployFrequency: 12.5, LeadTime: 2.3, FailureRate: 3.2, MTTR: 45, CodeQuality: 82, TestCoverage: 78,
			},
		},
		{
			ID: 3, Name: "Mobile", Lead: "Wang Wu", MemberCount: 6,
			Efficiency: 92, Velocity: 24, Satisfaction: 4.5, QualityScore: 90,
			Trend: domain.DirectionUp, TrendValue: 8.5,
			Skills: []domain.Skill{{Name: "Swift", Value: 88}, {Name: "Kotlin", Value: 90}, {Name: "Flutter", Value: 85}, {Name: "React Native", Value: 82}, {Name: "Mobile UX", Value: 92}},
			Metrics: domain.EntityMetrics{
				DeployFrequency: 10.8, LeadTime: 2.7, FailureRate: 3.8, MTTR: 52, CodeQuality: 90, TestCoverage: 85,
			},
		},
		{
			ID: 4, Name: "DevOps", Lead: "Zhao Liu", MemberCount: 5,
			Efficiency: 88, Velocity: 18, Satisfaction: 4.3, QualityScore: 86,
			Trend: domain.DirectionUp, TrendValue: 6.8,
			Skills: []domain.Skill{{Name: "Docker", Value: 95}, {Name: "Kubernetes", Value: 92}, {Name: "CI/CD", Value: 94}, {Name: "Cloud", Value: 88}, {Name: "Monitoring", Value: 90}},
			Metrics: domain.EntityMetrics{
				DeployFrequency: 18.5, LeadTime: 1.5, FailureRate: 1.8, MTTR: 32, CodeQuality: 86, TestCoverage: 80,
			},
		},
	}
}

func projects() []domain.Project {
	return []domain.Project{
		{
			ID: 1, Name: "Storefront Re-architecture", Description: "Rebuild the e-commerce platform on microservices",
			Status: "active", Progress: 68, StartDate: "2023-06-15", EndDate: "2023-12-30",
			Teams: []string{"Frontend", "Backend", "DevOps"}, Lead: "Zhang San", Members: 18,
			Health: "good", Risk: "low", Priority: "high",
			Metrics: domain.EntityMetrics{
				DeployFrequency: 12.5, LeadTime: 2.3, FailureRate: 3.2, MTTR: 45, CodeQuality: 82, TestCoverage: 78,
				Velocity: 28, FlowEfficiency: 65, TechDebt: 15, BugRate: 2.8,
			},
			Trends: map[string]domain.MetricSeries{
				"velocity": series("velocity", months, 24, 26, 25, 28, 30),
				"leadTime": series("leadTime", months, 3.2, 2.8, 2.5, 2.3, 2.1),
				"bugRate":  series("bugRate", months, 3.5, 3.2, 3.0, 2.8, 2.5),
			},
		},
		{
			ID: 2, Name: "Mobile App Upgrade", Description: "Refresh the mobile UI and core features",
			Status: "active", Progress: 85, StartDate: "2023-08-01", EndDate: "2023-12-15",
			Teams: []string{"Mobile", "Design"}, Lead: "Wang Wu", Members: 10,
			Health: "excellent", Risk: "low", Priority: "medium",
			Metrics: domain.EntityMetrics{
				DeployFrequency: 10.8, LeadTime: 1.8, FailureRate: 2.5, MTTR: 38, CodeQuality: 88, TestCoverage: 82,
				Velocity: 22, FlowEfficiency: 72, TechDebt: 12, BugRate: 2.2,
			},
			Trends: map[string]domain.MetricSeries{
				"velocity": series("velocity", months, 18, 20, 21, 22),
				"leadTime": series("leadTime", months, 2.2, 2.0, 1.9, 1.8),
				"bugRate":  series("bugRate", months, 2.8, 2.6, 2.4, 2.2),
			},
		},
		{
			ID: 3, Name: "Analytics Platform", Description: "Enterprise data analysis and visualization platform",
			Status: "planning", Progress: 15, StartDate: "2023-11-01", EndDate: "2024-06-30",
			Teams: []string{"Backend", "DevOps", "Data"}, Lead: "Li Si", Members: 12,
			Health: "good", Risk: "medium", Priority: "high",
			Metrics: domain.EntityMetrics{CodeQuality: 90, TestCoverage: 85, TechDebt: 5},
			Trends: map[string]domain.MetricSeries{
				"velocity": series("velocity", months, 0),
				"leadTime": series("leadTime", months, 0),
				"bugRate":  series("bugRate", months, 0),
			},
		},
	}
}

func member(id int, name, team, role string, efficiency, contribution float64, skills ...string) domain.Member {
	return domain.Member{
		ID: id, Name: name, Team: team, Role: role,
		Skills: skills, Efficiency: efficiency, Contribution: contribution,
	}
}

func members() []domain.Member {
	return []domain.Member{
		member(1, "Zhang San", "Frontend", "Team lead", 92, 95, "React", "Vue", "TypeScript"),
		member(2, "Li Ming", "Frontend", "Senior engineer", 88, 85, "React", "JavaScript", "CSS"),
		member(3, "Wang Fang", "Frontend", "Engineer", 82, 78, "Vue", "JavaScript", "HTML"),
		member(4, "Zhao Jing", "Frontend", "UI engineer", 85, 80, "CSS", "SCSS", "React"),
		member(5, "Li Si", "Backend", "Team lead", 90, 92, "Java", "Spring", "SQL"),
		member(6, "Zhang Wei", "Backend", "Architect", 94, 90, "Java", "Microservices", "NoSQL"),
		member(7, "Wang Wu", "Mobile", "Team lead", 91, 88, "Swift", "Kotlin", "Flutter"),
		member(8, "Zhao Liu", "DevOps", "Team lead", 93, 91, "Docker", "Kubernetes", "CI/CD"),
	}
}

func activity(id int64, typ domain.ActivityType, project, description, actor string, at time.Time, status string) domain.Activity {
	return domain.Activity{
		ID: id, Type: typ, Project: project, Description: description,
		Actor: actor, Timestamp: at, Status: status,
	}
}

func activities() []domain.Activity {
	return []domain.Activity{
		activity(1, domain.ActivityDeployment, "Storefront Re-architecture", "Deployed v2.5.0 to production", "Zhao Liu", ts("2023-11-28T15:30:00Z"), "success"),
		activity(2, domain.ActivityCode, "Mobile App Upgrade", `Merged PR #128 "Optimize image loading"`, "Wang Wu", ts("2023-11-28T14:45:00Z"), "success"),
		activity(3, domain.ActivityIncident, "Storefront Re-architecture", "Resolved the payment module outage", "Li Si", ts("2023-11-28T10:15:00Z"), "resolved"),
		activity(4, domain.ActivityTest, "Analytics Platform", "Finished unit tests for the ingestion module", "Zhang Ming", ts("2023-11-28T09:30:00Z"), "success"),
		activity(5, domain.ActivityMeeting, "All projects", "Weekly engineering effectiveness review", "Zhang San", ts("2023-11-27T16:00:00Z"), "completed"),
	}
}

func insights() []domain.Insight {
	return []domain.Insight{
		{
			ID: 1, Title: "Frontend code quality improvement opportunity",
			Description: "Static analysis shows room for improvement in error handling and component reuse. Add error boundaries and extract more reusable hooks.",
			Type:        domain.InsightQuality, Severity: domain.SeverityMedium, Confidence: 82,
			RelatedTeam: "Frontend", RelatedProject: "Storefront Re-architecture",
			Metrics: []string{"codeQuality", "maintainability"}, Status: domain.StatusOpen,
			CreatedAt: ts("2023-11-25T08:30:00Z"), UpdatedAt: ts("2023-11-25T08:30:00Z"),
		},
		{
			ID: 2, Title: "Deployment frequency drop warning",
			Description: "Deployments over the last two weeks fell 32% versus the same period last month, mostly due to an unstable test environment.",
			Type:        domain.InsightProcess, Severity: domain.SeverityHigh, Confidence: 88,
			RelatedTeam: "DevOps", RelatedProject: "Storefront Re-architecture",
			Metrics: []string{"deploymentFrequency", "testCoverage"}, Status: domain.StatusInProgress,
			CreatedAt: ts("2023-11-26T14:15:00Z"), UpdatedAt: ts("2023-11-26T14:15:00Z"),
		},
		{
			ID: 3, Title: "Mobile app performance tuning",
			Description: "Image loading and list rendering are bottlenecks. Lazy image loading and virtualized lists should cut startup time by about 25%.",
			Type:        domain.InsightPerformance, Severity: domain.SeverityMedium, Confidence: 75,
			RelatedTeam: "Mobile", RelatedProject: "Mobile App Upgrade",
			Metrics: []string{"performance", "userExperience"}, Status: domain.StatusOpen,
			CreatedAt: ts("2023-11-27T10:45:00Z"), UpdatedAt: ts("2023-11-27T10:45:00Z"),
		},
		{
			ID: 4, Title: "Backend scalability risk",
			Description: "Given current growth, the database layout is likely to hit scaling limits during the holiday sale. Plan read/write splitting and sharding.",
			Type:        domain.InsightRisk, Severity: domain.SeverityHigh, Confidence: 79,
			RelatedTeam: "Backend", RelatedProject: "Storefront Re-architecture",
			Metrics: []string{"scalability", "stability"}, Status: domain.StatusOpen,
			CreatedAt: ts("2023-11-28T09:20:00Z"), UpdatedAt: ts("2023-11-28T09:20:00Z"),
		},
		{
			ID: 5, Title: "Cross-team collaboration friction",
			Description: "API change coordination between frontend and backend costs about 8 hours of waiting per week. Adopt API-first development and contract tests.",
			Type:        domain.InsightCollaboration, Severity: domain.SeverityMedium, Confidence: 71,
			RelatedTeam: "Multiple", RelatedProject: "Storefront Re-architecture",
			Metrics: []string{"collaboration", "leadTime"}, Status: domain.StatusOpen,
			CreatedAt: ts("2023-11-28T16:10:00Z"), UpdatedAt: ts("2023-11-28T16:10:00Z"),
		},
	}
}

func recommendations() []domain.Recommendation {
	return []domain.Recommendation{
		{
			ID: 1, Title: "Automate the CI/CD pipeline",
			Description: "Remove manual release steps and gate merges on the automated test suite.",
			Type:        "process", Priority: domain.LevelHigh, Effort: domain.LevelMedium, Impact: domain.LevelHigh,
			Status: domain.StatusOpen, EstimatedDays: 14, RelatedTeam: "DevOps", InsightID: 2,
			CreatedAt: ts("2023-11-26T15:00:00Z"), UpdatedAt: ts("2023-11-26T15:00:00Z"),
		},
		{
			ID: 2, Title: "Introduce error boundaries",
			Description: "Wrap route-level components and report caught errors to monitoring.",
			Type:        "practice", Priority: domain.LevelMedium, Effort: domain.LevelLow, Impact: domain.LevelMedium,
			Status: domain.StatusInProgress, Progress: 40, EstimatedDays: 7, RelatedTeam: "Frontend", InsightID: 1,
			CreatedAt: ts("2023-11-25T09:00:00Z"), UpdatedAt: ts("2023-11-27T09:00:00Z"),
		},
		{
			ID: 3, Title: "Contract testing workshop",
			Description: "Train frontend and backend engineers on consumer-driven contract tests.",
			Type:        "training", Priority: domain.LevelMedium, Effort: domain.LevelLow, Impact: domain.LevelMedium,
			Status: domain.StatusResolved, Progress: 100, EstimatedDays: 3, RelatedTeam: "Multiple", InsightID: 5,
			CreatedAt: ts("2023-11-20T09:00:00Z"), UpdatedAt: ts("2023-11-24T17:00:00Z"),
		},
	}
}
