package application_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/usecase"
)

const validToken = "ghp_valid"

type mockVault struct {
	mu     sync.Mutex
	tokens map[int64]string
}

func newMockVault() *mockVault { return &mockVault{tokens: map[int64]string{}} }

func (m *mockVault) Store(ctx context.Context, tgID int64, token string) (*usecase.StoreResult, error) {
	if token != validToken {
		return nil, domain.ErrBadCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, had := m.tokens[tgID]
	m.tokens[tgID] = token
	return &usecase.StoreResult{User: &model.GitHubUser{Login: "octocat", Name: "Mona"}, Updated: had}, nil
}

func (m *mockVault) Load(ctx context.Context, tgID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tgID]
	if !ok {
		return "", domain.ErrNoActiveCredential
	}
	return t, nil
}

func (m *mockVault) Forget(ctx context.Context, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[tgID]
	delete(m.tokens, tgID)
	return ok, nil
}

// mockGitHub serves a fixed account with one repository.
type mockGitHub struct {
	vault *mockVault

	items     []*model.Item
	closed    []string
	merged    []string
	closeErr  error
	reposErr  error
	longNames bool
}

var portfolio = &model.Repository{
	Owner: "octocat", Name: "portfolio", FullName: "octocat/portfolio",
	DefaultBranch: "main", HTMLURL: "https://github.com/octocat/portfolio", Stars: 3, OpenIssues: 2,
}

func (m *mockGitHub) auth(ctx context.Context, tgID int64) error {
	_, err := m.vault.Load(ctx, tgID)
	return err
}

func (m *mockGitHub) Me(ctx context.Context, tgID int64) (*model.GitHubUser, error) {
	if err := m.auth(ctx, tgID); err != nil {
		return nil, err
	}
	return &model.GitHubUser{Login: "octocat", Name: "Mona"}, nil
}

func (m *mockGitHub) Repositories(ctx context.Context, tgID int64) ([]*model.Repository, error) {
	if err := m.auth(ctx, tgID); err != nil {
		return nil, err
	}
	if m.reposErr != nil {
		return nil, m.reposErr
	}
	out := []*model.Repository{portfolio}
	if m.longNames {
		out = append(out, &model.Repository{Name: strings.Repeat("x", 80)})
	}
	return out, nil
}

func (m *mockGitHub) GetRepository(ctx context.Context, tgID int64, name string) (*model.Repository, error) {
	if err := m.auth(ctx, tgID); err != nil {
		return nil, err
	}
	if name != portfolio.Name {
		return nil, domain.ErrNotFound
	}
	r := *portfolio
	return &r, nil
}

func (m *mockGitHub) RepositoryDetails(ctx context.Context, tgID int64, name string) (*usecase.RepositoryDetails, error) {
	r, err := m.GetRepository(ctx, tgID, name)
	if err != nil {
		return nil, err
	}
	return &usecase.RepositoryDetails{
		Repository:   r,
		Issues:       model.PartitionItems(m.items, true),
		PullRequests: model.PartitionItems(m.items, false),
	}, nil
}

func (m *mockGitHub) GetBranch(ctx context.Context, tgID int64, repo *model.Repository, name string) (*model.Branch, error) {
	if name != "main" && name != "feature" {
		return nil, domain.ErrNotFound
	}
	return &model.Branch{Name: name}, nil
}

func (m *mockGitHub) Items(ctx context.Context, tgID int64, wantIssues bool) ([]*model.Item, error) {
	if err := m.auth(ctx, tgID); err != nil {
		return nil, err
	}
	return model.PartitionItems(m.items, wantIssues), nil
}

func (m *mockGitHub) CreateIssue(ctx context.Context, tgID int64, repo *model.Repository, req model.IssueRequest) (*model.Item, error) {
	return &model.Item{Number: 9, Title: req.Title, HTMLURL: repo.HTMLURL + "/issues/9"}, nil
}

func (m *mockGitHub) CreatePullRequest(ctx context.Context, tgID int64, repo *model.Repository, req model.PullRequestRequest) (*model.Item, error) {
	it := &model.Item{Number: 10, Title: req.Title, HTMLURL: repo.HTMLURL + "/pull/10", IsPullRequest: true}
	if req.Assignee == "ghost" {
		it.UnassignedTo = req.Assignee
	}
	return it, nil
}

func (m *mockGitHub) find(ref string) (*model.Item, error) {
	for _, it := range m.items {
		if it.Ref() == ref {
			return it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockGitHub) Close(ctx context.Context, tgID int64, ref string) (*model.Item, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	it, err := m.find(ref)
	if err != nil {
		return nil, err
	}
	m.closed = append(m.closed, ref)
	return it, nil
}

func (m *mockGitHub) Merge(ctx context.Context, tgID int64, ref string) (*model.Item, error) {
	it, err := m.find(ref)
	if err != nil {
		return nil, err
	}
	if !it.IsPullRequest {
		return nil, domain.ErrInvalidArgument
	}
	m.merged = append(m.merged, ref)
	return it, nil
}

func sampleItems() []*model.Item {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []*model.Item{
		{Number: 1, Title: "Bug", URL: "https://api.github.com/repos/octocat/portfolio/issues/1",
			HTMLURL: "https://github.com/octocat/portfolio/issues/1", RepoHTMLURL: portfolio.HTMLURL,
			Author: "octocat", CreatedAt: created},
		{Number: 2, Title: "Feature", URL: "https://api.github.com/repos/octocat/portfolio/issues/2",
			HTMLURL: "https://github.com/octocat/portfolio/pull/2", RepoHTMLURL: portfolio.HTMLURL,
			Author: "octocat", CreatedAt: created, IsPullRequest: true},
	}
}
