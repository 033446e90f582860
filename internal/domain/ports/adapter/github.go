package adapter

import (
	"context"

	"telegram-github-helper/internal/domain/model"
)

// GitHubClient is the set of GitHub calls the bot makes on behalf of one token.
//
// Lookups return domain.ErrNotFound for missing entities and
// domain.ErrBadCredentials when the token is rejected. Any other failure
// matches domain.ErrRemote.
type GitHubClient interface {
	CurrentUser(ctx context.Context) (*model.GitHubUser, error)
	ListRepositories(ctx context.Context) ([]*model.Repository, error)
	// GetRepository accepts "owner/name" or a bare name owned by the token's user.
	GetRepository(ctx context.Context, name string) (*model.Repository, error)
	GetBranch(ctx context.Context, repo *model.Repository, name string) (*model.Branch, error)
	ListRepositoryItems(ctx context.Context, repo *model.Repository) ([]*model.Item, error)
	// ListItems returns the user's issues when wantIssues is true, pull requests otherwise.
	ListItems(ctx context.Context, wantIssues bool) ([]*model.Item, error)
	CreateIssue(ctx context.Context, repo *model.Repository, req model.IssueRequest) (*model.Item, error)
	CreatePullRequest(ctx context.Context, repo *model.Repository, req model.PullRequestRequest) (*model.Item, error)
	// CloseItem and MergePullRequest address an item by its API url, with or
	// without the "https://api.github.com/repos/" prefix.
	CloseItem(ctx context.Context, ref string) (*model.Item, error)
	MergePullRequest(ctx context.Context, ref string) (*model.Item, error)
}

type GitHubClientFactory interface {
	ForToken(token string) GitHubClient
}
