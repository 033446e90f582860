package application

import (
	"telegram-github-helper/internal/domain/ports/adapter"
)

// ActionKind is the leading tag byte of inline button callback data.
type ActionKind byte

const (
	ActionLookup      ActionKind = 'r'
	ActionClose       ActionKind = 'c'
	ActionMerge       ActionKind = 'm'
	ActionIssue       ActionKind = 'i'
	ActionPullRequest ActionKind = 'p'
)

// Telegram rejects buttons whose callback data is longer than this.
const maxCallbackData = 64

type Action struct {
	Kind ActionKind
	Arg  string
}

// ParseAction decodes callback data. Data without a known tag is treated as
// a bare repository name.
func ParseAction(data string) Action {
	if data == "" {
		return Action{Kind: ActionLookup}
	}
	switch k := ActionKind(data[0]); k {
	case ActionLookup, ActionClose, ActionMerge, ActionIssue, ActionPullRequest:
		return Action{Kind: k, Arg: data[1:]}
	}
	return Action{Kind: ActionLookup, Arg: data}
}

func (a Action) Data() string {
	return string(a.Kind) + a.Arg
}

// actionButton returns false when the encoded action does not fit into a
// callback payload.
func actionButton(text string, a Action) (adapter.InlineButton, bool) {
	data := a.Data()
	if len(data) > maxCallbackData {
		return adapter.InlineButton{}, false
	}
	return adapter.InlineButton{Text: text, Data: data}, true
}
