package model

import (
	"strings"
	"time"
)

// GitHubUser is the account behind a stored token.
type GitHubUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// DisplayName falls back to the login when the profile has no name.
func (u *GitHubUser) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

// Repository is a snapshot of a GitHub repository. It is cached inside a flow
// session, so it must stay JSON friendly.
type Repository struct {
	ID            int64  `json:"id"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
	Stars         int    `json:"stars"`
	OpenIssues    int    `json:"open_issues"`
}

// Visibility returns "Private" or "Public".
func (r *Repository) Visibility() string {
	if r.Private {
		return "Private"
	}
	return "Public"
}

type Branch struct {
	Name string
	SHA  string
}

// Item is an entry of the combined issue / pull request feed.
type Item struct {
	Number        int
	Title         string
	URL           string // API url, used to address the item in close/merge actions
	HTMLURL       string
	State         string
	Author        string
	RepoOwner     string
	RepoName      string
	RepoHTMLURL   string
	IsPullRequest bool
	CreatedAt     time.Time
	UnassignedTo  string // set when the assignee could not be added after creation
}

// Ref is the short address of the item used in close and merge actions.
func (it *Item) Ref() string {
	return ShortRef(it.URL)
}

// ShortRef strips everything up to and including "/repos/" from an API url.
func ShortRef(apiURL string) string {
	if i := strings.Index(apiURL, "/repos/"); i >= 0 {
		return apiURL[i+len("/repos/"):]
	}
	return apiURL
}

// PartitionItems keeps the issues when wantIssues is true and the pull
// requests otherwise, preserving feed order.
func PartitionItems(items []*Item, wantIssues bool) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.IsPullRequest != wantIssues {
			out = append(out, it)
		}
	}
	return out
}
