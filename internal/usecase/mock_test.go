//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
	"telegram-github-helper/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- Mock CredentialRepository ----

type MockCredentialRepo struct {
	mu    sync.Mutex
	data  map[int64]model.Credential
	Error error
}

var _ repository.CredentialRepository = (*MockCredentialRepo)(nil)

func NewMockCredentialRepo() *MockCredentialRepo {
	return &MockCredentialRepo{data: map[int64]model.Credential{}}
}

func (m *MockCredentialRepo) Upsert(ctx context.Context, c *model.Credential) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return false, m.Error
	}
	_, exists := m.data[c.TelegramID]
	m.data[c.TelegramID] = *c
	return !exists, nil
}

func (m *MockCredentialRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	c, ok := m.data[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *MockCredentialRepo) Delete(ctx context.Context, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[tgID]
	delete(m.data, tgID)
	return ok, nil
}

// =============================
// Adapters
// =============================

// ---- Mock Cipher ----

// MockCipher "encrypts" by prefixing; Decrypt fails for foreign input.
type MockCipher struct{}

func (MockCipher) Encrypt(p string) (string, error) { return "enc:" + p, nil }
func (MockCipher) Decrypt(c string) (string, error) {
	if !strings.HasPrefix(c, "enc:") {
		return "", errors.New("gcm open: message authentication failed")
	}
	return strings.TrimPrefix(c, "enc:"), nil
}

// ---- Mock GitHub ----

// MockGitHub is a scripted GitHub account shared by every valid token.
type MockGitHub struct {
	mu sync.Mutex

	User        model.GitHubUser
	ValidTokens map[string]bool
	Repos       map[string]*model.Repository // by name
	Branches    map[string][]string          // repo name -> branches
	Feed        []*model.Item

	CreateErr     error
	GetRepoErr    error
	Issues        []model.IssueRequest
	PullRequests  []model.PullRequestRequest
	Closed        []string
	Merged        []string
	GetRepoCalls  int
	GetBranchCall int
}

var (
	_ adapter.GitHubClientFactory = (*MockGitHub)(nil)
	_ adapter.GitHubClient        = (*mockGitHubClient)(nil)
)

func NewMockGitHub() *MockGitHub {
	return &MockGitHub{
		User:        model.GitHubUser{Login: "octocat", Name: "Mona"},
		ValidTokens: map[string]bool{"ghp_valid": true},
		Repos: map[string]*model.Repository{
			"portfolio": {ID: 1, Owner: "octocat", Name: "portfolio", FullName: "octocat/portfolio", DefaultBranch: "main"},
			"archive":   {ID: 2, Owner: "octocat", Name: "archive", FullName: "octocat/archive", DefaultBranch: "master", Archived: true},
		},
		Branches: map[string][]string{"portfolio": {"main", "feature"}},
	}
}

func (m *MockGitHub) ForToken(token string) adapter.GitHubClient {
	return &mockGitHubClient{m: m, token: token}
}

type mockGitHubClient struct {
	m     *MockGitHub
	token string
}

func (c *mockGitHubClient) auth() error {
	if !c.m.ValidTokens[c.token] {
		return fmt.Errorf("get user: %w", domain.ErrBadCredentials)
	}
	return nil
}

func (c *mockGitHubClient) CurrentUser(ctx context.Context) (*model.GitHubUser, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	u := c.m.User
	return &u, nil
}

func (c *mockGitHubClient) ListRepositories(ctx context.Context) ([]*model.Repository, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	var out []*model.Repository
	for _, name := range []string{"portfolio", "archive"} {
		if r, ok := c.m.Repos[name]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *mockGitHubClient) GetRepository(ctx context.Context, name string) (*model.Repository, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.GetRepoCalls++
	if c.m.GetRepoErr != nil {
		return nil, c.m.GetRepoErr
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Remote("get repository", err)
	}
	r, ok := c.m.Repos[strings.TrimPrefix(name, "octocat/")]
	if !ok {
		return nil, fmt.Errorf("get repository: %w", domain.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (c *mockGitHubClient) GetBranch(ctx context.Context, repo *model.Repository, name string) (*model.Branch, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.GetBranchCall++
	if repo == nil {
		return nil, fmt.Errorf("get branch: %w", domain.ErrNotFound)
	}
	for _, b := range c.m.Branches[repo.Name] {
		if b == name {
			return &model.Branch{Name: b, SHA: "sha-" + b}, nil
		}
	}
	return nil, fmt.Errorf("get branch: %w", domain.ErrNotFound)
}

func (c *mockGitHubClient) ListRepositoryItems(ctx context.Context, repo *model.Repository) ([]*model.Item, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	var out []*model.Item
	for _, it := range c.m.Feed {
		if it.RepoName == repo.Name {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *mockGitHubClient) ListItems(ctx context.Context, wantIssues bool) ([]*model.Item, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	return model.PartitionItems(c.m.Feed, wantIssues), nil
}

func (c *mockGitHubClient) CreateIssue(ctx context.Context, repo *model.Repository, req model.IssueRequest) (*model.Item, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.Issues = append(c.m.Issues, req)
	if c.m.CreateErr != nil {
		return nil, c.m.CreateErr
	}
	n := len(c.m.Issues)
	return &model.Item{Number: n, Title: req.Title, RepoName: repo.Name, HTMLURL: fmt.Sprintf("https://github.com/%s/issues/%d", repo.FullName, n)}, nil
}

func (c *mockGitHubClient) CreatePullRequest(ctx context.Context, repo *model.Repository, req model.PullRequestRequest) (*model.Item, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.PullRequests = append(c.m.PullRequests, req)
	if c.m.CreateErr != nil {
		return nil, c.m.CreateErr
	}
	n := len(c.m.PullRequests)
	return &model.Item{Number: n, Title: req.Title, RepoName: repo.Name, IsPullRequest: true}, nil
}

func (c *mockGitHubClient) find(ref string) *model.Item {
	for _, it := range c.m.Feed {
		if it.URL == ref || strings.HasSuffix(it.URL, "/repos/"+ref) {
			return it
		}
	}
	return nil
}

func (c *mockGitHubClient) CloseItem(ctx context.Context, ref string) (*model.Item, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	it := c.find(ref)
	if it == nil {
		return nil, domain.ErrNotFound
	}
	c.m.Closed = append(c.m.Closed, ref)
	return it, nil
}

func (c *mockGitHubClient) MergePullRequest(ctx context.Context, ref string) (*model.Item, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	it := c.find(ref)
	if it == nil {
		return nil, domain.ErrNotFound
	}
	c.m.Merged = append(c.m.Merged, ref)
	return it, nil
}
