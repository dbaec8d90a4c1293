package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"haru/internal/client"
	"haru/internal/model"
)

// The action dispatcher: each user intent issues exactly one request to the
// REST facade and comes back as a tagged actionMsg. Validation failures,
// non-2xx responses and transport errors all fold into the single err field;
// callers only ever distinguish "which intent succeeded" from "an error
// occurred".

type intentKind int

const (
	intentCreate intentKind = iota
	intentUpdate
	intentDelete
)

func (k intentKind) String() string {
	switch k {
	case intentCreate:
		return "create"
	case intentUpdate:
		return "update"
	default:
		return "delete"
	}
}

type intent struct {
	kind      intentKind
	id        string
	title     string
	completed bool
	patch     model.Patch
}

// actionMsg is the dispatcher result: todo carries the created/merged record
// on success, id names the target for deletes, err is the single error tag.
type actionMsg struct {
	kind intentKind
	id   string
	todo model.Todo
	err  error
}

func dispatch(api *client.Client, in intent) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		switch in.kind {
		case intentCreate:
			todo, err := api.Create(ctx, in.title, in.completed)
			return actionMsg{kind: in.kind, todo: todo, err: err}
		case intentUpdate:
			todo, err := api.Update(ctx, in.id, in.patch)
			return actionMsg{kind: in.kind, id: in.id, todo: todo, err: err}
		default:
			err := api.Delete(ctx, in.id)
			return actionMsg{kind: in.kind, id: in.id, err: err}
		}
	}
}

// loadedMsg carries the once-per-session data load: the full list plus the
// locale/timezone context. A non-nil err escalates to the page error view.
type loadedMsg struct {
	todos []model.Todo
	page  client.PageContext
	err   error
}

func load(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		todos, err := api.List(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		page, err := api.Context(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{todos: todos, page: page}
	}
}

// tickMsg drives toast countdowns and the deferred-delete commit, once per
// second while any countdown toast is live.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// flashMsg ends the 600ms filter-tab highlight. seq guards against a stale
// decay cancelling a newer flash.
type flashMsg struct {
	seq int
}

const flashDuration = 600 * time.Millisecond

func flashDecay(seq int) tea.Cmd {
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashMsg{seq: seq}
	})
}
