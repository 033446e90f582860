package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ GitHubUseCase = (*githubUC)(nil)

// RepositoryDetails is a repository together with its open items.
type RepositoryDetails struct {
	Repository   *model.Repository
	Issues       []*model.Item
	PullRequests []*model.Item
}

// GitHubUseCase runs GitHub calls on behalf of a Telegram user. Every call
// loads the user's token from the vault and is bounded by a timeout.
type GitHubUseCase interface {
	Me(ctx context.Context, tgID int64) (*model.GitHubUser, error)
	Repositories(ctx context.Context, tgID int64) ([]*model.Repository, error)
	GetRepository(ctx context.Context, tgID int64, name string) (*model.Repository, error)
	RepositoryDetails(ctx context.Context, tgID int64, name string) (*RepositoryDetails, error)
	GetBranch(ctx context.Context, tgID int64, repo *model.Repository, name string) (*model.Branch, error)
	Items(ctx context.Context, tgID int64, wantIssues bool) ([]*model.Item, error)
	CreateIssue(ctx context.Context, tgID int64, repo *model.Repository, req model.IssueRequest) (*model.Item, error)
	CreatePullRequest(ctx context.Context, tgID int64, repo *model.Repository, req model.PullRequestRequest) (*model.Item, error)
	Close(ctx context.Context, tgID int64, ref string) (*model.Item, error)
	Merge(ctx context.Context, tgID int64, ref string) (*model.Item, error)
}

type githubUC struct {
	vault   VaultUseCase
	clients adapter.GitHubClientFactory
	timeout time.Duration
	log     *zerolog.Logger
}

func NewGitHubUseCase(vault VaultUseCase, clients adapter.GitHubClientFactory, timeout time.Duration, logger *zerolog.Logger) *githubUC {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &githubUC{
		vault:   vault,
		clients: clients,
		timeout: timeout,
		log:     logging.Component(logger, "github"),
	}
}

// call loads the client of tgID and runs fn under the call timeout.
func (g *githubUC) call(ctx context.Context, tgID int64, op string, fn func(ctx context.Context, c adapter.GitHubClient) error) error {
	token, err := g.vault.Load(ctx, tgID)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err = fn(cctx, g.clients.ForToken(token))
	metrics.ObserveGitHubCall(op, resultLabel(err), time.Since(start))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, g.log).Warn().Err(err).Str("op", op).Msg("github call failed")
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func (g *githubUC) Me(ctx context.Context, tgID int64) (*model.GitHubUser, error) {
	var u *model.GitHubUser
	err := g.call(ctx, tgID, "current_user", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		u, err = c.CurrentUser(ctx)
		return err
	})
	return u, err
}

// Repositories lists the user's repositories that are not archived.
func (g *githubUC) Repositories(ctx context.Context, tgID int64) ([]*model.Repository, error) {
	var repos []*model.Repository
	err := g.call(ctx, tgID, "list_repositories", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		repos, err = c.ListRepositories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := repos[:0]
	for _, r := range repos {
		if !r.Archived {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *githubUC) GetRepository(ctx context.Context, tgID int64, name string) (*model.Repository, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNotFound
	}
	var repo *model.Repository
	err := g.call(ctx, tgID, "get_repository", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		repo, err = c.GetRepository(ctx, name)
		return err
	})
	return repo, err
}

func (g *githubUC) RepositoryDetails(ctx context.Context, tgID int64, name string) (*RepositoryDetails, error) {
	repo, err := g.GetRepository(ctx, tgID, name)
	if err != nil {
		return nil, err
	}
	var items []*model.Item
	err = g.call(ctx, tgID, "list_repository_items", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		items, err = c.ListRepositoryItems(ctx, repo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &RepositoryDetails{
		Repository:   repo,
		Issues:       model.PartitionItems(items, true),
		PullRequests: model.PartitionItems(items, false),
	}, nil
}

func (g *githubUC) GetBranch(ctx context.Context, tgID int64, repo *model.Repository, name string) (*model.Branch, error) {
	var b *model.Branch
	err := g.call(ctx, tgID, "get_branch", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		b, err = c.GetBranch(ctx, repo, name)
		return err
	})
	return b, err
}

func (g *githubUC) Items(ctx context.Context, tgID int64, wantIssues bool) ([]*model.Item, error) {
	op := "list_pull_requests"
	if wantIssues {
		op = "list_issues"
	}
	var items []*model.Item
	err := g.call(ctx, tgID, op, func(ctx context.Context, c adapter.GitHubClient) (err error) {
		items, err = c.ListItems(ctx, wantIssues)
		return err
	})
	return items, err
}

func (g *githubUC) CreateIssue(ctx context.Context, tgID int64, repo *model.Repository, req model.IssueRequest) (*model.Item, error) {
	var it *model.Item
	err := g.call(ctx, tgID, "create_issue", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		it, err = c.CreateIssue(ctx, repo, req)
		return err
	})
	return it, err
}

func (g *githubUC) CreatePullRequest(ctx context.Context, tgID int64, repo *model.Repository, req model.PullRequestRequest) (*model.Item, error) {
	var it *model.Item
	err := g.call(ctx, tgID, "create_pull_request", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		it, err = c.CreatePullRequest(ctx, repo, req)
		return err
	})
	if err == nil && it != nil && it.UnassignedTo != "" {
		logging.With(ctx, g.log).Warn().Int64("tg_id", tgID).Str("repo", repo.FullName).Int("number", it.Number).
			Str("assignee", it.UnassignedTo).Msg("pull request created without assignee")
	}
	return it, err
}

func (g *githubUC) Close(ctx context.Context, tgID int64, ref string) (*model.Item, error) {
	var it *model.Item
	err := g.call(ctx, tgID, "close_item", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		it, err = c.CloseItem(ctx, ref)
		return err
	})
	return it, err
}

func (g *githubUC) Merge(ctx context.Context, tgID int64, ref string) (*model.Item, error) {
	var it *model.Item
	err := g.call(ctx, tgID, "merge_pull_request", func(ctx context.Context, c adapter.GitHubClient) (err error) {
		it, err = c.MergePullRequest(ctx, ref)
		return err
	})
	return it, err
}
