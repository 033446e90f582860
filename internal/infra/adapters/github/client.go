package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/go-github/v68/github"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
)

// maxPages bounds paginated listings.
const maxPages = 10

var (
	_ adapter.GitHubClient        = (*Client)(nil)
	_ adapter.GitHubClientFactory = (*Factory)(nil)
)

// Factory builds one Client per token. All clients share the HTTP transport.
type Factory struct {
	httpClient *http.Client
	baseURL    *url.URL
	perPage    int
}

// NewFactory returns a factory for api.github.com, or for baseURL when set
// (GitHub Enterprise or a test server).
func NewFactory(httpClient *http.Client, baseURL string, perPage int) (*Factory, error) {
	f := &Factory{httpClient: httpClient, perPage: perPage}
	if f.perPage <= 0 || f.perPage > 100 {
		f.perPage = 100
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		f.baseURL = u
	}
	return f, nil
}

func (f *Factory) ForToken(token string) adapter.GitHubClient {
	gh := github.NewClient(f.httpClient).WithAuthToken(token)
	if f.baseURL != nil {
		u := *f.baseURL
		gh.BaseURL = &u
	}
	return &Client{gh: gh, perPage: f.perPage}
}

// Client implements adapter.GitHubClient with go-github.
type Client struct {
	gh      *github.Client
	perPage int

	mu    sync.Mutex
	login string
}

func (c *Client) CurrentUser(ctx context.Context) (*model.GitHubUser, error) {
	u, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, mapError("get user", resp, err)
	}
	c.mu.Lock()
	c.login = u.GetLogin()
	c.mu.Unlock()
	return &model.GitHubUser{Login: u.GetLogin(), Name: u.GetName()}, nil
}

func (c *Client) currentLogin(ctx context.Context) (string, error) {
	c.mu.Lock()
	login := c.login
	c.mu.Unlock()
	if login != "" {
		return login, nil
	}
	u, err := c.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return u.Login, nil
}

func (c *Client) ListRepositories(ctx context.Context) ([]*model.Repository, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}
	var out []*model.Repository
	for page := 0; page < maxPages; page++ {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, mapError("list repositories", resp, err)
		}
		for _, r := range repos {
			out = append(out, toRepository(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) GetRepository(ctx context.Context, name string) (*model.Repository, error) {
	owner, repo, err := c.splitName(ctx, name)
	if err != nil {
		return nil, err
	}
	r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, mapError("get repository", resp, err)
	}
	return toRepository(r), nil
}

func (c *Client) splitName(ctx context.Context, name string) (string, string, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return "", "", fmt.Errorf("get repository: %w", domain.ErrNotFound)
	}
	if owner, repo, ok := strings.Cut(name, "/"); ok {
		if owner == "" || repo == "" || strings.Contains(repo, "/") {
			return "", "", fmt.Errorf("get repository %q: %w", name, domain.ErrNotFound)
		}
		return owner, repo, nil
	}
	login, err := c.currentLogin(ctx)
	if err != nil {
		return "", "", err
	}
	return login, name, nil
}

func (c *Client) GetBranch(ctx context.Context, repo *model.Repository, name string) (*model.Branch, error) {
	if repo == nil || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("get branch: %w", domain.ErrNotFound)
	}
	b, resp, err := c.gh.Repositories.GetBranch(ctx, repo.Owner, repo.Name, name, 0)
	if err != nil {
		return nil, mapError("get branch", resp, err)
	}
	return &model.Branch{Name: b.GetName(), SHA: b.GetCommit().GetSHA()}, nil
}

func (c *Client) ListRepositoryItems(ctx context.Context, repo *model.Repository) ([]*model.Item, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}
	var out []*model.Item
	for page := 0; page < maxPages; page++ {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, mapError("list repository issues", resp, err)
		}
		for _, is := range issues {
			it := toItem(is)
			if it.RepoName == "" {
				it.RepoOwner, it.RepoName, it.RepoHTMLURL = repo.Owner, repo.Name, repo.HTMLURL
			}
			out = append(out, it)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// feed lists the open issues and pull requests assigned to the user across
// their repositories.
func (c *Client) feed(ctx context.Context) ([]*model.Item, error) {
	opts := &github.IssueListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}
	var out []*model.Item
	for page := 0; page < maxPages; page++ {
		issues, resp, err := c.gh.Issues.List(ctx, false, opts)
		if err != nil {
			return nil, mapError("list issues", resp, err)
		}
		for _, is := range issues {
			out = append(out, toItem(is))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) ListItems(ctx context.Context, wantIssues bool) ([]*model.Item, error) {
	items, err := c.feed(ctx)
	if err != nil {
		return nil, err
	}
	return model.PartitionItems(items, wantIssues), nil
}

func (c *Client) CreateIssue(ctx context.Context, repo *model.Repository, req model.IssueRequest) (*model.Item, error) {
	ir := &github.IssueRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
	}
	if req.Assignee != "" {
		ir.Assignee = github.Ptr(req.Assignee)
	}
	is, resp, err := c.gh.Issues.Create(ctx, repo.Owner, repo.Name, ir)
	if err != nil {
		return nil, mapError("create issue", resp, err)
	}
	it := toItem(is)
	it.RepoOwner, it.RepoName, it.RepoHTMLURL = repo.Owner, repo.Name, repo.HTMLURL
	return it, nil
}

// CreatePullRequest opens the pull request and then assigns it, since the
// pulls endpoint takes no assignee. A failed assignment does not fail the
// call; the item carries UnassignedTo instead.
func (c *Client) CreatePullRequest(ctx context.Context, repo *model.Repository, req model.PullRequestRequest) (*model.Item, error) {
	pr, resp, err := c.gh.PullRequests.Create(ctx, repo.Owner, repo.Name, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
		Base:  github.Ptr(req.Base),
		Head:  github.Ptr(req.Head),
		Draft: github.Ptr(req.Draft),
	})
	if err != nil {
		return nil, mapError("create pull request", resp, err)
	}
	it := &model.Item{
		Number:        pr.GetNumber(),
		Title:         pr.GetTitle(),
		URL:           pr.GetIssueURL(),
		HTMLURL:       pr.GetHTMLURL(),
		State:         pr.GetState(),
		Author:        pr.GetUser().GetLogin(),
		RepoOwner:     repo.Owner,
		RepoName:      repo.Name,
		RepoHTMLURL:   repo.HTMLURL,
		IsPullRequest: true,
		CreatedAt:     pr.GetCreatedAt().Time,
	}
	if req.Assignee != "" {
		if _, _, err := c.gh.Issues.AddAssignees(ctx, repo.Owner, repo.Name, pr.GetNumber(), []string{req.Assignee}); err != nil {
			it.UnassignedTo = req.Assignee
		}
	}
	return it, nil
}

func (c *Client) find(ctx context.Context, ref string) (*model.Item, error) {
	items, err := c.feed(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if MatchesRef(it.URL, ref) {
			return it, nil
		}
	}
	return nil, fmt.Errorf("find %q: %w", ref, domain.ErrNotFound)
}

func (c *Client) CloseItem(ctx context.Context, ref string) (*model.Item, error) {
	it, err := c.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	is, resp, err := c.gh.Issues.Edit(ctx, it.RepoOwner, it.RepoName, it.Number, &github.IssueRequest{
		State: github.Ptr("closed"),
	})
	if err != nil {
		return nil, mapError("close item", resp, err)
	}
	closed := toItem(is)
	if closed.RepoName == "" {
		closed.RepoOwner, closed.RepoName, closed.RepoHTMLURL = it.RepoOwner, it.RepoName, it.RepoHTMLURL
	}
	return closed, nil
}

func (c *Client) MergePullRequest(ctx context.Context, ref string) (*model.Item, error) {
	it, err := c.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !it.IsPullRequest {
		return nil, fmt.Errorf("merge #%d: not a pull request: %w", it.Number, domain.ErrInvalidArgument)
	}
	res, resp, err := c.gh.PullRequests.Merge(ctx, it.RepoOwner, it.RepoName, it.Number, "", nil)
	if err != nil {
		return nil, mapError("merge pull request", resp, err)
	}
	if !res.GetMerged() {
		return nil, domain.Remote("merge pull request", errors.New(res.GetMessage()))
	}
	it.State = "merged"
	return it, nil
}

// MatchesRef reports whether the API url of an item is ref, either in full or
// as the part after "/repos/".
func MatchesRef(itemURL, ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || itemURL == "" {
		return false
	}
	if itemURL == ref {
		return true
	}
	return strings.HasSuffix(itemURL, "/repos/"+strings.TrimPrefix(ref, "/"))
}

func mapError(op string, resp *github.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	var ge *github.ErrorResponse
	if status == 0 && errors.As(err, &ge) && ge.Response != nil {
		status = ge.Response.StatusCode
	}
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, domain.ErrBadCredentials)
	}
	return domain.Remote(op, err)
}

func toRepository(r *github.Repository) *model.Repository {
	return &model.Repository{
		ID:            r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		HTMLURL:       r.GetHTMLURL(),
		Private:       r.GetPrivate(),
		Archived:      r.GetArchived(),
		Stars:         r.GetStargazersCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
	}
}

func toItem(is *github.Issue) *model.Item {
	it := &model.Item{
		Number:        is.GetNumber(),
		Title:         is.GetTitle(),
		URL:           is.GetURL(),
		HTMLURL:       is.GetHTMLURL(),
		State:         is.GetState(),
		Author:        is.GetUser().GetLogin(),
		IsPullRequest: is.IsPullRequest(),
		CreatedAt:     is.GetCreatedAt().Time,
	}
	if r := is.GetRepository(); r != nil {
		it.RepoOwner = r.GetOwner().GetLogin()
		it.RepoName = r.GetName()
		it.RepoHTMLURL = r.GetHTMLURL()
	}
	if it.RepoName == "" {
		it.RepoOwner, it.RepoName = repoFromURL(it.URL)
	}
	return it
}

// repoFromURL extracts owner and name from .../repos/{owner}/{name}/issues/{n}.
func repoFromURL(apiURL string) (string, string) {
	parts := strings.Split(model.ShortRef(apiURL), "/")
	if len(parts) < 2 || apiURL == model.ShortRef(apiURL) {
		return "", ""
	}
	return parts[0], parts[1]
}
