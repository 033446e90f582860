package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-github-helper/internal/application"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/adapter"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

// fakeFacade records the calls and answers with the method name.
type fakeFacade struct {
	calls []string
}

func (f *fakeFacade) rec(format string, args ...interface{}) application.Reply {
	s := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, s)
	return application.Reply{Text: s}
}

func (f *fakeFacade) HandleStart(ctx context.Context, tgID int64) application.Reply {
	return f.rec("start %d", tgID)
}
func (f *fakeFacade) HandleHelp(ctx context.Context, tgID int64) application.Reply {
	return f.rec("help %d", tgID)
}
func (f *fakeFacade) HandleToken(ctx context.Context, tgID int64, token string) application.Reply {
	return f.rec("token %d %s", tgID, token)
}
func (f *fakeFacade) HandleLogout(ctx context.Context, tgID int64) application.Reply {
	return f.rec("logout %d", tgID)
}
func (f *fakeFacade) HandleMe(ctx context.Context, tgID int64) application.Reply {
	return f.rec("me %d", tgID)
}
func (f *fakeFacade) HandleRepos(ctx context.Context, tgID int64) application.Reply {
	r := f.rec("repos %d", tgID)
	r.Buttons = [][]adapter.InlineButton{
		{{Text: "1", Data: "rportfolio"}, {Text: "link", URL: "https://github.com/octocat/portfolio"}},
	}
	return r
}
func (f *fakeFacade) HandleRepository(ctx context.Context, tgID int64, name string) application.Reply {
	return f.rec("repository %d %s", tgID, name)
}
func (f *fakeFacade) HandleItems(ctx context.Context, tgID int64, wantIssues bool) application.Reply {
	return f.rec("items %d %t", tgID, wantIssues)
}
func (f *fakeFacade) HandleClose(ctx context.Context, tgID int64, ref string) application.Reply {
	return f.rec("close %d %s", tgID, ref)
}
func (f *fakeFacade) HandleMerge(ctx context.Context, tgID int64, ref string) application.Reply {
	return f.rec("merge %d %s", tgID, ref)
}
func (f *fakeFacade) HandleStartFlow(ctx context.Context, tgID int64, kind model.FlowKind, presetRepo string) application.Reply {
	return f.rec("flow %d %s %s", tgID, kind, presetRepo)
}
func (f *fakeFacade) HandleCancel(ctx context.Context, tgID int64) application.Reply {
	return f.rec("cancel %d", tgID)
}
func (f *fakeFacade) HandleText(ctx context.Context, tgID int64, text string) application.Reply {
	return f.rec("text %d %s", tgID, text)
}
func (f *fakeFacade) HandleCallback(ctx context.Context, tgID int64, data string) application.Reply {
	return f.rec("callback %d %s", tgID, data)
}

type fakeTranslator struct{}

func (fakeTranslator) T(key string, args ...interface{}) string { return key }

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}
