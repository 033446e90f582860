package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"
	"telegram-github-helper/internal/usecase"
)

var _ Handler = (*BotFacade)(nil)

// repository number buttons per keyboard row
const reposPerRow = 5

// BotFacade composes usecases into high-level bot commands.
// Keep the facade methods returning rendered replies so the Telegram adapter just forwards them to the chat.
type BotFacade struct {
	Vault  usecase.VaultUseCase
	GitHub usecase.GitHubUseCase
	Flow   usecase.FlowUseCase

	tr  Translator
	log *zerolog.Logger
}

func NewBotFacade(vault usecase.VaultUseCase, github usecase.GitHubUseCase, flow usecase.FlowUseCase, tr Translator, logger *zerolog.Logger) *BotFacade {
	return &BotFacade{
		Vault:  vault,
		GitHub: github,
		Flow:   flow,
		tr:     tr,
		log:    logging.Component(logger, "facade"),
	}
}

func (b *BotFacade) text(key string, args ...interface{}) Reply {
	return Reply{Text: b.tr.T(key, args...)}
}

// fail renders the errors every handler shares. Anything unexpected is
// logged and answered with the generic text.
func (b *BotFacade) fail(ctx context.Context, op string, err error) Reply {
	switch {
	case errors.Is(err, domain.ErrNoActiveCredential):
		return b.text("token_missing")
	case errors.Is(err, domain.ErrBusy):
		return b.text("busy")
	}
	logging.With(ctx, b.log).Error().Err(err).Str("op", op).Msg("handler failed")
	return b.text("generic_error")
}

func (b *BotFacade) HandleStart(ctx context.Context, tgID int64) Reply {
	return b.text("start")
}

func (b *BotFacade) HandleHelp(ctx context.Context, tgID int64) Reply {
	return b.text("help")
}

// HandleToken validates and stores token, then introduces the account.
func (b *BotFacade) HandleToken(ctx context.Context, tgID int64, token string) Reply {
	token = strings.TrimSpace(token)
	if token == "" {
		return b.text("token_enter")
	}
	res, err := b.Vault.Store(ctx, tgID, token)
	switch {
	case errors.Is(err, domain.ErrBadCredentials):
		return b.text("token_bad")
	case errors.Is(err, domain.ErrInvalidArgument):
		return b.text("token_enter")
	case err != nil:
		return b.fail(ctx, "token", err)
	}
	key := "token_set"
	if res.Updated {
		key = "token_updated"
	}
	return Reply{Text: b.tr.T(key) + "\n" + b.tr.T("me", res.User.Login, res.User.DisplayName())}
}

// HandleLogout forgets the token and drops any running flow with it.
func (b *BotFacade) HandleLogout(ctx context.Context, tgID int64) Reply {
	if _, err := b.Flow.Cancel(ctx, tgID); err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Msg("cancel flow on logout failed")
	}
	removed, err := b.Vault.Forget(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "logout", err)
	}
	if !removed {
		return b.text("logout_none")
	}
	return b.text("logout_done")
}

func (b *BotFacade) HandleMe(ctx context.Context, tgID int64) Reply {
	u, err := b.GitHub.Me(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "me", err)
	}
	return b.text("me", u.Login, u.DisplayName())
}

// HandleRepos lists the repositories with one number button each.
func (b *BotFacade) HandleRepos(ctx context.Context, tgID int64) Reply {
	repos, err := b.GitHub.Repositories(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "repos", err)
	}
	if len(repos) == 0 {
		return b.text("repos_empty")
	}

	var sb strings.Builder
	var rows [][]adapter.InlineButton
	var row []adapter.InlineButton
	for i, r := range repos {
		sb.WriteString(b.tr.T("repos_line", i+1, r.Name, r.HTMLURL, r.OpenIssues, r.Visibility()))
		sb.WriteString("\n")
		if btn, ok := actionButton(fmt.Sprint(i+1), Action{Kind: ActionLookup, Arg: r.Name}); ok {
			row = append(row, btn)
		}
		if len(row) == reposPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	sb.WriteString("\n")
	sb.WriteString(b.tr.T("repos_footer"))
	return Reply{Text: sb.String(), Buttons: rows}
}

// HandleRepository shows one repository with its open issues and pull
// requests as link buttons.
func (b *BotFacade) HandleRepository(ctx context.Context, tgID int64, name string) Reply {
	name = strings.TrimSpace(name)
	if name == "" {
		return b.text("repo_not_found")
	}
	d, err := b.GitHub.RepositoryDetails(ctx, tgID, name)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
		return b.text("repo_not_found")
	}
	if err != nil {
		return b.fail(ctx, "repository", err)
	}

	r := d.Repository
	var rows [][]adapter.InlineButton
	if btn, ok := actionButton(b.tr.T("btn_create_issue"), Action{Kind: ActionIssue, Arg: r.Name}); ok {
		rows = append(rows, []adapter.InlineButton{btn})
	}
	if btn, ok := actionButton(b.tr.T("btn_create_pr"), Action{Kind: ActionPullRequest, Arg: r.Name}); ok {
		rows = append(rows, []adapter.InlineButton{btn})
	}
	for _, it := range d.Issues {
		rows = append(rows, []adapter.InlineButton{{Text: b.tr.T("btn_issue", it.Number, it.Title), URL: it.HTMLURL}})
	}
	for _, it := range d.PullRequests {
		rows = append(rows, []adapter.InlineButton{{Text: b.tr.T("btn_pr", it.Number, it.Title), URL: it.HTMLURL}})
	}
	return Reply{
		Text:    b.tr.T("repo_details", r.Name, r.HTMLURL, r.Stars, r.OpenIssues),
		Buttons: rows,
	}
}

// HandleItems lists the open issues or pull requests of the user with close
// and merge buttons.
func (b *BotFacade) HandleItems(ctx context.Context, tgID int64, wantIssues bool) Reply {
	items, err := b.GitHub.Items(ctx, tgID, wantIssues)
	if err != nil {
		return b.fail(ctx, "items", err)
	}
	if len(items) == 0 {
		if wantIssues {
			return b.text("issues_empty")
		}
		return b.text("prs_empty")
	}

	var sb strings.Builder
	rows := make([][]adapter.InlineButton, 0, len(items))
	for i, it := range items {
		n := i + 1
		sb.WriteString(b.tr.T("item_line", n, it.Title, it.Number, it.HTMLURL, it.RepoHTMLURL,
			it.CreatedAt.Format("2006-01-02"), it.Author))
		sb.WriteString("\n")

		var row []adapter.InlineButton
		if btn, ok := actionButton(b.tr.T("btn_close", n), Action{Kind: ActionClose, Arg: it.Ref()}); ok {
			row = append(row, btn)
		}
		if it.IsPullRequest {
			if btn, ok := actionButton(b.tr.T("btn_merge", n), Action{Kind: ActionMerge, Arg: it.Ref()}); ok {
				row = append(row, btn)
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return Reply{Text: strings.TrimRight(sb.String(), "\n"), Buttons: rows}
}

func (b *BotFacade) HandleClose(ctx context.Context, tgID int64, ref string) Reply {
	it, err := b.GitHub.Close(ctx, tgID, ref)
	if err != nil {
		return b.itemFailure(ctx, "close", err)
	}
	return b.text("item_closed", it.Number, it.Title)
}

func (b *BotFacade) HandleMerge(ctx context.Context, tgID int64, ref string) Reply {
	it, err := b.GitHub.Merge(ctx, tgID, ref)
	if err != nil {
		return b.itemFailure(ctx, "merge", err)
	}
	return b.text("item_merged", it.Number, it.Title)
}

func (b *BotFacade) itemFailure(ctx context.Context, op string, err error) Reply {
	switch {
	case errors.Is(err, domain.ErrNoActiveCredential):
		return b.text("token_missing")
	case errors.Is(err, domain.ErrNotFound):
		return b.text("item_not_found")
	}
	logging.With(ctx, b.log).Warn().Err(err).Str("op", op).Msg("item action failed")
	return b.text("item_failed")
}

// HandleStartFlow starts a creation flow and asks the first open question.
func (b *BotFacade) HandleStartFlow(ctx context.Context, tgID int64, kind model.FlowKind, presetRepo string) Reply {
	reply, err := b.Flow.StartFlow(ctx, tgID, kind, presetRepo)
	if err != nil {
		return b.fail(ctx, "start_flow", err)
	}
	return Reply{Text: b.tr.T("flow_"+string(kind)+"_started") + "\n" + b.prompt(kind, reply.Step)}
}

func (b *BotFacade) HandleCancel(ctx context.Context, tgID int64) Reply {
	cancelled, err := b.Flow.Cancel(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "cancel", err)
	}
	if !cancelled {
		return b.text("nothing_to_cancel")
	}
	return b.text("cancelled")
}

// HandleText routes free text: "cancel", an answer to the running flow, or
// a repository lookup.
func (b *BotFacade) HandleText(ctx context.Context, tgID int64, text string) Reply {
	if strings.EqualFold(strings.TrimSpace(text), "cancel") {
		return b.HandleCancel(ctx, tgID)
	}
	active, err := b.Flow.Active(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "text", err)
	}
	if !active {
		return b.HandleRepository(ctx, tgID, text)
	}

	reply, err := b.Flow.SubmitAnswer(ctx, tgID, text)
	if err != nil {
		return b.answerFailure(ctx, tgID, text, err)
	}
	if reply.Done {
		key := "issue_created"
		if reply.Kind == model.FlowPullRequest {
			key = "pull_request_created"
		}
		out := b.tr.T(key)
		if reply.Result != nil && reply.Result.HTMLURL != "" {
			out += "\n" + reply.Result.HTMLURL
		}
		if reply.Result != nil && reply.Result.UnassignedTo != "" {
			out += "\n" + b.tr.T("assign_failed", reply.Result.UnassignedTo)
		}
		return Reply{Text: out}
	}
	return Reply{Text: b.prompt(reply.Kind, reply.Step)}
}

// answerFailure renders a rejected answer. Validation failures repeat the
// question of the step that is still waiting.
func (b *BotFacade) answerFailure(ctx context.Context, tgID int64, text string, err error) Reply {
	switch {
	case errors.Is(err, domain.ErrNoActiveFlow):
		return b.HandleRepository(ctx, tgID, text)
	case errors.Is(err, domain.ErrUnknownRepository):
		return Reply{Text: b.tr.T("invalid_repo_name") + "\n" + b.tr.T("prompt_repo_name")}
	case errors.Is(err, domain.ErrBaseBranchMismatch):
		return Reply{Text: b.tr.T("invalid_base") + "\n" + b.tr.T("prompt_base")}
	case errors.Is(err, domain.ErrUnknownBranch):
		return Reply{Text: b.tr.T("invalid_head") + "\n" + b.tr.T("prompt_head")}
	case errors.Is(err, domain.ErrInvalidDraft):
		return Reply{Text: b.tr.T("invalid_draft") + "\n" + b.tr.T("prompt_draft")}
	case errors.Is(err, domain.ErrSubmission):
		logging.With(ctx, b.log).Warn().Err(err).Msg("flow submission failed")
		return b.text("submission_failed")
	}
	return b.fail(ctx, "answer", err)
}

// prompt prefers a flow specific question and falls back to the shared one.
func (b *BotFacade) prompt(kind model.FlowKind, step model.FlowStep) string {
	key := "prompt_" + string(kind) + "_" + string(step)
	if s := b.tr.T(key); s != key {
		return s
	}
	return b.tr.T("prompt_" + string(step))
}

// HandleCallback dispatches an inline button press.
func (b *BotFacade) HandleCallback(ctx context.Context, tgID int64, data string) Reply {
	a := ParseAction(strings.TrimSpace(data))
	metrics.IncTelegramCallback(string(a.Kind))
	switch a.Kind {
	case ActionClose:
		return b.HandleClose(ctx, tgID, a.Arg)
	case ActionMerge:
		return b.HandleMerge(ctx, tgID, a.Arg)
	case ActionIssue:
		return b.HandleStartFlow(ctx, tgID, model.FlowIssue, a.Arg)
	case ActionPullRequest:
		return b.HandleStartFlow(ctx, tgID, model.FlowPullRequest, a.Arg)
	default:
		return b.HandleRepository(ctx, tgID, a.Arg)
	}
}
