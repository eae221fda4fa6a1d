package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

// GitHubClient читает агрегированную статистику репозитория из REST API.
type GitHubClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	guard      *Guard
}

func NewGitHubClient(cfg infra.GitHubConfig, guard *Guard) (*GitHubClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: %w: token is not set", domain.ErrConfiguration)
	}
	return &GitHubClient{
		token:   cfg.Token,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		guard: guard,
	}, nil
}

// RepoStats собирает три ряда статистики. Все три запроса идут одним защищённым вызовом:
// частичный ответ клиенту не нужен.
func (c *GitHubClient) RepoStats(ctx context.Context, owner, repo string) (domain.RepoStats, error) {
	var stats domain.RepoStats
	target := owner + "/" + repo

	err := c.guard.Do(ctx, "repo_stats", target, func(ctx context.Context) error {
		endpoints := []struct {
			path string
			dst  *json.RawMessage
		}{
			{"commit_activity", &stats.CommitActivity},
			{"code_frequency", &stats.CodeFrequency},
			{"participation", &stats.Participation},
		}
		for _, e := range endpoints {
			body, pending, err := c.get(ctx, owner, repo, e.path)
			if err != nil {
				return err
			}
			*e.dst = body
			stats.Pending = stats.Pending || pending
		}
		return nil
	})
	if err != nil {
		return domain.RepoStats{}, err
	}
	return stats, nil
}

// get возвращает тело ответа; pending=true, если GitHub ещё считает статистику (202).
func (c *GitHubClient) get(ctx context.Context, owner, repo, stat string) (json.RawMessage, bool, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/stats/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), stat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("github: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("github: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := readResponse("github", resp, time.Now())
	if err != nil {
		// 404 от GitHub означает неизвестный или закрытый репозиторий
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return nil, false, fmt.Errorf("github: repository %s/%s: %w", owner, repo, domain.ErrNotFound)
		}
		return nil, false, err
	}
	if resp.StatusCode == http.StatusAccepted || len(body) == 0 {
		return json.RawMessage("[]"), true, nil
	}
	if !json.Valid(body) {
		return nil, false, fmt.Errorf("github: %w: invalid JSON in %s response", domain.ErrUpstream, stat)
	}
	return body, false, nil
}
