package model

import (
	"strings"
	"time"

	"telegram-github-helper/internal/domain"
)

type FlowKind string

const (
	FlowIssue       FlowKind = "issue"
	FlowPullRequest FlowKind = "pull_request"
)

type FlowStep string

const (
	StepRepoName FlowStep = "repo_name"
	StepTitle    FlowStep = "title"
	StepBody     FlowStep = "body"
	StepAssignee FlowStep = "assignee"
	StepBase     FlowStep = "base"
	StepHead     FlowStep = "head"
	StepDraft    FlowStep = "draft"
)

// NoAssignee is the answer that leaves an issue or pull request unassigned.
const NoAssignee = "empty"

var flowSteps = map[FlowKind][]FlowStep{
	FlowIssue:       {StepRepoName, StepTitle, StepBody, StepAssignee},
	FlowPullRequest: {StepRepoName, StepTitle, StepBody, StepAssignee, StepBase, StepHead, StepDraft},
}

func (k FlowKind) Valid() bool {
	_, ok := flowSteps[k]
	return ok
}

// Steps returns a copy of the ordered step list of the flow.
func (k FlowKind) Steps() []FlowStep {
	return append([]FlowStep(nil), flowSteps[k]...)
}

func (k FlowKind) First() FlowStep {
	steps := flowSteps[k]
	if len(steps) == 0 {
		return ""
	}
	return steps[0]
}

func (k FlowKind) Has(step FlowStep) bool {
	return k.index(step) >= 0
}

// Next returns the step after s. ok is false when s is the terminal step or
// not part of the flow.
func (k FlowKind) Next(s FlowStep) (next FlowStep, ok bool) {
	steps := flowSteps[k]
	i := k.index(s)
	if i < 0 || i+1 >= len(steps) {
		return "", false
	}
	return steps[i+1], true
}

func (k FlowKind) IsTerminal(s FlowStep) bool {
	steps := flowSteps[k]
	return len(steps) > 0 && steps[len(steps)-1] == s
}

func (k FlowKind) index(s FlowStep) int {
	for i, st := range flowSteps[k] {
		if st == s {
			return i
		}
	}
	return -1
}

type IssueRequest struct {
	RepoName string `json:"repo_name"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Assignee string `json:"assignee"`
}

type PullRequestRequest struct {
	RepoName string `json:"repo_name"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Assignee string `json:"assignee"`
	Base     string `json:"base"`
	Head     string `json:"head"`
	Draft    bool   `json:"draft"`
}

// FlowSession is the per-user record of an in-progress creation flow.
// Exactly one of Issue / PullRequest is set, matching Kind.
type FlowSession struct {
	TelegramID  int64               `json:"telegram_id"`
	Kind        FlowKind            `json:"kind"`
	Step        FlowStep            `json:"step"`
	Issue       *IssueRequest       `json:"issue,omitempty"`
	PullRequest *PullRequestRequest `json:"pull_request,omitempty"`
	Repository  *Repository         `json:"repository,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewFlowSession(tgID int64, kind FlowKind, now time.Time) (*FlowSession, error) {
	if tgID == 0 || !kind.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	s := &FlowSession{
		TelegramID: tgID,
		Kind:       kind,
		Step:       kind.First(),
		StartedAt:  now,
		UpdatedAt:  now,
	}
	switch kind {
	case FlowIssue:
		s.Issue = &IssueRequest{}
	case FlowPullRequest:
		s.PullRequest = &PullRequestRequest{}
	}
	return s, nil
}

// SetText stores a validated free-text answer for the current step.
func (s *FlowSession) SetText(value string) error {
	if s.Step == StepAssignee && strings.EqualFold(strings.TrimSpace(value), NoAssignee) {
		value = ""
	}
	switch s.Kind {
	case FlowIssue:
		if s.Issue == nil {
			s.Issue = &IssueRequest{}
		}
		switch s.Step {
		case StepRepoName:
			s.Issue.RepoName = value
		case StepTitle:
			s.Issue.Title = value
		case StepBody:
			s.Issue.Body = value
		case StepAssignee:
			s.Issue.Assignee = value
		default:
			return domain.ErrInvalidArgument
		}
	case FlowPullRequest:
		if s.PullRequest == nil {
			s.PullRequest = &PullRequestRequest{}
		}
		switch s.Step {
		case StepRepoName:
			s.PullRequest.RepoName = value
		case StepTitle:
			s.PullRequest.Title = value
		case StepBody:
			s.PullRequest.Body = value
		case StepAssignee:
			s.PullRequest.Assignee = value
		case StepBase:
			s.PullRequest.Base = value
		case StepHead:
			s.PullRequest.Head = value
		default:
			return domain.ErrInvalidArgument
		}
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

func (s *FlowSession) SetDraft(draft bool) error {
	if s.Kind != FlowPullRequest || s.Step != StepDraft {
		return domain.ErrInvalidArgument
	}
	if s.PullRequest == nil {
		s.PullRequest = &PullRequestRequest{}
	}
	s.PullRequest.Draft = draft
	return nil
}

// Advance moves to the next step. It returns false on the terminal step,
// leaving Step unchanged.
func (s *FlowSession) Advance(now time.Time) bool {
	next, ok := s.Kind.Next(s.Step)
	if !ok {
		return false
	}
	s.Step = next
	s.UpdatedAt = now
	return true
}

// ParseDraft accepts "true" / "false" in any case, surrounding spaces ignored.
func ParseDraft(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, domain.ErrInvalidDraft
}
