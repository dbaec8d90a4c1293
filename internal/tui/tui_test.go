package tui

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"haru/internal/client"
	"haru/internal/config"
	"haru/internal/model"
	"haru/internal/server"
	"haru/internal/storage"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(server.New(storage.NewMemory(),
		server.WithLogger(log.New(io.Discard, "", 0))).Handler())
	t.Cleanup(srv.Close)

	api, err := client.New(srv.URL)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return api
}

// loadedModel builds a Model and runs the initial data load against the facade.
func loadedModel(t *testing.T, api *client.Client) Model {
	t.Helper()
	cfg, err := config.LoadOrCreate(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("config.LoadOrCreate: %v", err)
	}
	m := newModel(api, cfg, "")
	return apply(t, m, load(api)())
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	nm, _ := m.Update(msg)
	return nm.(Model)
}

// applyCmd runs Update and returns the command so the test can deliver the
// dispatcher result itself.
func applyCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	nm, cmd := m.Update(msg)
	return nm.(Model), cmd
}

// deliver executes a dispatcher command synchronously and feeds every
// resulting message back through Update. Timer commands are never passed
// here; ticks are injected directly as messages.
func deliver(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	for _, msg := range runCmd(cmd) {
		m = apply(t, m, msg)
	}
	return m
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestLoadFailureShowsErrorView(t *testing.T) {
	api, err := client.New("http://127.0.0.1:1") // nothing listens here
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	cfg, err := config.LoadOrCreate(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("config.LoadOrCreate: %v", err)
	}
	m := apply(t, newModel(api, cfg, ""), load(api)())

	if m.loadErr == "" {
		t.Fatal("expected a load error")
	}
	view := m.View()
	if !strings.Contains(view, "Could not load todos") {
		t.Fatalf("error view missing headline:\n%s", view)
	}
	if !strings.Contains(view, "r retry") {
		t.Fatalf("error view missing retry hint:\n%s", view)
	}

	// Any key other than retry/quit is ignored in the error view.
	m = apply(t, m, key("a"))
	if m.adding {
		t.Fatal("error view must not open the add input")
	}
}

func TestCreateScenario(t *testing.T) {
	api := newTestClient(t)
	m := loadedModel(t, api)

	view := m.View()
	if !strings.Contains(view, "All (0)") {
		t.Fatalf("empty list tabs wrong:\n%s", view)
	}

	m = apply(t, m, key("a"))
	if !m.adding {
		t.Fatal("'a' should enter add mode")
	}
	m = apply(t, m, key("Buy milk"))
	m, cmd := applyCmd(t, m, key("enter"))
	if !m.inflight {
		t.Fatal("submission should mark a mutation in flight")
	}
	m = deliver(t, m, cmd)

	if m.inflight {
		t.Fatal("inflight must clear once the result lands")
	}
	if len(m.todos) != 1 || m.todos[0].Title != "Buy milk" {
		t.Fatalf("todos = %+v", m.todos)
	}
	if !m.adding {
		t.Fatal("add mode should persist for the next entry")
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}

	view = m.View()
	for _, want := range []string{"All (1)", "Active (1)", "Completed (0)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("tabs missing %q:\n%s", want, view)
		}
	}
}

func TestToggleMovesBuckets(t *testing.T) {
	api := newTestClient(t)
	if _, err := api.Create(context.Background(), "Buy milk", false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := loadedModel(t, api)

	m, cmd := applyCmd(t, m, key(" "))
	m = deliver(t, m, cmd)

	if !m.todos[0].Completed {
		t.Fatal("toggle did not complete the todo")
	}
	_, active, completed := model.Counts(m.todos)
	if active != 0 || completed != 1 {
		t.Fatalf("counts active=%d completed=%d, want 0/1", active, completed)
	}
}

func TestDeleteThenUndoKeepsRecord(t *testing.T) {
	api := newTestClient(t)
	created, err := api.Create(context.Background(), "Keep me", false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := loadedModel(t, api)

	m = apply(t, m, key("d"))
	if _, pending := m.pendingDeletes[created.ID]; !pending {
		t.Fatal("delete not scheduled")
	}
	if !strings.Contains(m.View(), "(deleting…)") {
		t.Fatal("pending-delete item not marked in the view")
	}

	m = apply(t, m, key("u"))
	if len(m.pendingDeletes) != 0 || m.toasts.Len() != 0 {
		t.Fatal("undo should clear the schedule and the toast")
	}

	// A late tick after undo must not fire the delete.
	nm, cmd := m.Update(tickMsg(time.Now()))
	m = nm.(Model)
	if msgs := runCmd(cmd); len(msgs) != 0 {
		t.Fatalf("tick after undo produced %d messages", len(msgs))
	}

	todos, err := api.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(todos) != 1 {
		t.Fatalf("record gone after undo: %d left", len(todos))
	}
}

func TestDeleteCommitsWhenWindowLapses(t *testing.T) {
	api := newTestClient(t)
	if _, err := api.Create(context.Background(), "Doomed", false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := loadedModel(t, api)

	m = apply(t, m, key("d"))
	m, cmd := applyCmd(t, m, tickMsg(time.Now())) // 1s window lapses
	m = deliver(t, m, cmd)

	if len(m.todos) != 0 {
		t.Fatalf("todos not removed locally: %+v", m.todos)
	}
	if len(m.pendingDeletes) != 0 {
		t.Fatal("schedule entry not consumed")
	}
	todos, err := api.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(todos) != 0 {
		t.Fatalf("record still on the server: %+v", todos)
	}
}

func TestDismissCommitsDeleteEarly(t *testing.T) {
	api := newTestClient(t)
	if _, err := api.Create(context.Background(), "Doomed", false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := loadedModel(t, api)

	m = apply(t, m, key("d"))
	m, cmd := applyCmd(t, m, key("esc"))
	m = deliver(t, m, cmd)

	if m.toasts.Len() != 0 {
		t.Fatal("toast should be gone after dismiss")
	}
	todos, err := api.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(todos) != 0 {
		t.Fatalf("dismiss did not commit the delete: %+v", todos)
	}
}

func TestFailedUpdateLeavesListIntact(t *testing.T) {
	api := newTestClient(t)
	created, err := api.Create(context.Background(), "Buy milk", false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := loadedModel(t, api)

	// The record vanishes behind the view's back.
	if err := api.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	m, cmd := applyCmd(t, m, key(" "))
	m = deliver(t, m, cmd)

	if len(m.todos) != 1 {
		t.Fatalf("error must not mutate the list: %+v", m.todos)
	}
	if m.toasts.Len() != 1 {
		t.Fatalf("expected one failure toast, got %d", m.toasts.Len())
	}
	if got := m.toasts.Items()[0].Title; got != "Update failed" {
		t.Fatalf("toast title = %q", got)
	}
	if m.inflight {
		t.Fatal("inflight must clear on error")
	}
}

func TestFlashOnComplementaryBucketGrowth(t *testing.T) {
	api := newTestClient(t)
	m := loadedModel(t, api)
	m.filter = filterCompleted

	now := time.Now().UTC()
	todo, err := model.New("id-1", "Fresh", false, now)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	m = apply(t, m, actionMsg{kind: intentCreate, todo: todo})

	if !m.flashOn || m.flashTab != filterActive {
		t.Fatalf("flashOn=%v flashTab=%v, want active tab flash", m.flashOn, m.flashTab)
	}

	// A stale decay must not cancel the current flash.
	m = apply(t, m, flashMsg{seq: m.flashSeq - 1})
	if !m.flashOn {
		t.Fatal("stale decay cleared the flash")
	}
	m = apply(t, m, flashMsg{seq: m.flashSeq})
	if m.flashOn {
		t.Fatal("decay did not clear the flash")
	}
}

func TestNoFlashWhenViewingGrownBucket(t *testing.T) {
	api := newTestClient(t)
	m := loadedModel(t, api)
	m.filter = filterActive

	todo, err := model.New("id-1", "Fresh", false, time.Now().UTC())
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	m = apply(t, m, actionMsg{kind: intentCreate, todo: todo})

	if m.flashOn {
		t.Fatal("growth in the selected bucket must not flash")
	}
}

func TestInflightGatesSubmissions(t *testing.T) {
	api := newTestClient(t)
	if _, err := api.Create(context.Background(), "Buy milk", false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := loadedModel(t, api)
	m.inflight = true

	nm, cmd := m.Update(key(" "))
	m = nm.(Model)
	if cmd != nil {
		t.Fatal("toggle while in flight must not dispatch")
	}
	if len(m.todos) != 1 {
		t.Fatalf("todos = %+v", m.todos)
	}
}

func TestFilterCycleClampsCursor(t *testing.T) {
	api := newTestClient(t)
	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		if _, err := api.Create(ctx, title, false); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	m := loadedModel(t, api)
	m.cursor = 2

	m = apply(t, m, key("tab")) // all -> active, still 3 visible
	if m.filter != filterActive {
		t.Fatalf("filter = %v, want active", m.filter)
	}
	m = apply(t, m, key("tab")) // active -> completed, 0 visible
	if m.filter != filterCompleted {
		t.Fatalf("filter = %v, want completed", m.filter)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want clamped to 0", m.cursor)
	}
}
