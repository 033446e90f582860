package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/repository"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ FlowUseCase = (*flowUC)(nil)

// FlowReply tells the caller what to prompt next. Step is the step now
// awaiting an answer; it is empty once Done.
type FlowReply struct {
	Kind   model.FlowKind
	Step   model.FlowStep
	Done   bool
	Result *model.Item
}

// FlowUseCase drives the issue and pull request creation forms.
type FlowUseCase interface {
	// StartFlow replaces any running flow of the user. presetRepo, when not
	// empty, answers the repository step up front.
	StartFlow(ctx context.Context, tgID int64, kind model.FlowKind, presetRepo string) (*FlowReply, error)
	SubmitAnswer(ctx context.Context, tgID int64, text string) (*FlowReply, error)
	Cancel(ctx context.Context, tgID int64) (bool, error)
	Active(ctx context.Context, tgID int64) (bool, error)
}

type FlowOptions struct {
	LockTTL  time.Duration
	LockWait time.Duration
}

type flowUC struct {
	sessions repository.FlowSessionRepository
	locker   repository.Locker
	vault    VaultUseCase
	github   GitHubUseCase
	opts     FlowOptions
	now      func() time.Time
	log      *zerolog.Logger
}

func NewFlowUseCase(
	sessions repository.FlowSessionRepository,
	locker repository.Locker,
	vault VaultUseCase,
	github GitHubUseCase,
	opts FlowOptions,
	logger *zerolog.Logger,
) *flowUC {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 5 * time.Second
	}
	return &flowUC{
		sessions: sessions,
		locker:   locker,
		vault:    vault,
		github:   github,
		opts:     opts,
		now:      time.Now,
		log:      logging.Component(logger, "flow"),
	}
}

// withUserLock serializes every session read-modify-write of one user.
func (f *flowUC) withUserLock(ctx context.Context, tgID int64, fn func() error) error {
	key := fmt.Sprintf("flow:%d", tgID)
	lctx, cancel := context.WithTimeout(ctx, f.opts.LockWait)
	token, err := f.locker.TryLock(lctx, key, f.opts.LockTTL)
	cancel()
	if err != nil {
		return domain.ErrBusy
	}
	defer func() {
		if err := f.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			f.log.Warn().Err(err).Int64("tg_id", tgID).Msg("unlock failed")
		}
	}()
	return fn()
}

func (f *flowUC) StartFlow(ctx context.Context, tgID int64, kind model.FlowKind, presetRepo string) (*FlowReply, error) {
	defer logging.TraceDuration(f.log, "FlowUC.StartFlow")()

	if !kind.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	var reply *FlowReply
	err := f.withUserLock(ctx, tgID, func() error {
		if _, err := f.vault.Load(ctx, tgID); err != nil {
			return err
		}
		s, err := model.NewFlowSession(tgID, kind, f.now())
		if err != nil {
			return err
		}
		if presetRepo = strings.TrimSpace(presetRepo); presetRepo != "" {
			if repo, err := f.github.GetRepository(ctx, tgID, presetRepo); err == nil {
				s.Repository = repo
				_ = s.SetText(presetRepo)
				s.Advance(f.now())
			} else {
				logging.With(ctx, f.log).Info().Err(err).Str("repo", presetRepo).Msg("preset repository rejected")
			}
		}
		if err := f.sessions.Save(ctx, s); err != nil {
			return fmt.Errorf("save flow session: %w", err)
		}
		metrics.IncFlowStarted(string(kind))
		logging.With(ctx, f.log).Info().Int64("tg_id", tgID).Str("kind", string(kind)).Msg("flow started")
		reply = &FlowReply{Kind: kind, Step: s.Step}
		return nil
	})
	return reply, err
}

// SubmitAnswer validates text against the current step. A validation error
// (errors.Is domain.ErrValidation) leaves the session on the same step.
// The terminal step submits the request and ends the session either way.
func (f *flowUC) SubmitAnswer(ctx context.Context, tgID int64, text string) (*FlowReply, error) {
	defer logging.TraceDuration(f.log, "FlowUC.SubmitAnswer")()

	var reply *FlowReply
	err := f.withUserLock(ctx, tgID, func() error {
		s, err := f.sessions.Get(ctx, tgID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNoActiveFlow
			}
			return err
		}
		ctx := logging.WithFlow(ctx, string(s.Kind))

		if err := f.apply(ctx, s, text); err != nil {
			if errors.Is(err, domain.ErrNoActiveCredential) {
				f.end(ctx, s, "failed")
				return err
			}
			if errors.Is(err, domain.ErrValidation) {
				metrics.IncFlowValidationFailure(string(s.Kind), string(s.Step))
			}
			return err
		}

		if s.Advance(f.now()) {
			if err := f.sessions.Save(ctx, s); err != nil {
				return fmt.Errorf("save flow session: %w", err)
			}
			reply = &FlowReply{Kind: s.Kind, Step: s.Step}
			return nil
		}

		item, err := f.submit(ctx, s)
		if err != nil {
			f.end(ctx, s, "failed")
			logging.With(ctx, f.log).Warn().Err(err).Msg("flow submission failed")
			return fmt.Errorf("%w: %w", domain.ErrSubmission, err)
		}
		f.end(ctx, s, "submitted")
		reply = &FlowReply{Kind: s.Kind, Done: true, Result: item}
		return nil
	})
	return reply, err
}

// apply validates text for the current step and records it on s.
func (f *flowUC) apply(ctx context.Context, s *model.FlowSession, text string) error {
	tgID := s.TelegramID
	switch s.Step {
	case model.StepRepoName:
		name := strings.TrimSpace(text)
		repo, err := f.github.GetRepository(ctx, tgID, name)
		if err != nil {
			if errors.Is(err, domain.ErrNoActiveCredential) {
				return err
			}
			return fmt.Errorf("%w: %v", domain.ErrUnknownRepository, err)
		}
		s.Repository = repo
		return s.SetText(name)

	case model.StepBase:
		if s.Repository == nil || text != s.Repository.DefaultBranch {
			return domain.ErrBaseBranchMismatch
		}
		return s.SetText(text)

	case model.StepHead:
		if _, err := f.github.GetBranch(ctx, tgID, s.Repository, text); err != nil {
			if errors.Is(err, domain.ErrNoActiveCredential) {
				return err
			}
			return fmt.Errorf("%w: %v", domain.ErrUnknownBranch, err)
		}
		return s.SetText(text)

	case model.StepDraft:
		draft, err := model.ParseDraft(text)
		if err != nil {
			return err
		}
		return s.SetDraft(draft)

	default:
		return s.SetText(text)
	}
}

func (f *flowUC) submit(ctx context.Context, s *model.FlowSession) (*model.Item, error) {
	switch s.Kind {
	case model.FlowIssue:
		return f.github.CreateIssue(ctx, s.TelegramID, s.Repository, *s.Issue)
	case model.FlowPullRequest:
		return f.github.CreatePullRequest(ctx, s.TelegramID, s.Repository, *s.PullRequest)
	}
	return nil, domain.ErrInvalidArgument
}

// end removes the session. A failed delete is logged; the session then
// expires through its ttl.
func (f *flowUC) end(ctx context.Context, s *model.FlowSession, outcome string) {
	if _, err := f.sessions.Delete(context.WithoutCancel(ctx), s.TelegramID); err != nil {
		logging.With(ctx, f.log).Error().Err(err).Msg("failed to delete flow session")
	}
	metrics.IncFlowFinished(string(s.Kind), outcome)
	logging.With(ctx, f.log).Info().Int64("tg_id", s.TelegramID).Str("outcome", outcome).Msg("flow finished")
}

func (f *flowUC) Cancel(ctx context.Context, tgID int64) (bool, error) {
	defer logging.TraceDuration(f.log, "FlowUC.Cancel")()

	var cancelled bool
	err := f.withUserLock(ctx, tgID, func() error {
		s, err := f.sessions.Get(ctx, tgID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok, err := f.sessions.Delete(ctx, tgID)
		if err != nil {
			return err
		}
		if ok {
			metrics.IncFlowFinished(string(s.Kind), "cancelled")
		}
		cancelled = ok
		return nil
	})
	return cancelled, err
}

func (f *flowUC) Active(ctx context.Context, tgID int64) (bool, error) {
	_, err := f.sessions.Get(ctx, tgID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
