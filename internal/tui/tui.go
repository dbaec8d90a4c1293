package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"haru/internal/client"
	"haru/internal/config"
	"haru/internal/model"
	"haru/internal/notify"
)

type filter int

const (
	filterAll filter = iota
	filterActive
	filterCompleted
)

func (f filter) label() string {
	switch f {
	case filterActive:
		return "Active"
	case filterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

func parseFilter(s string) filter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return filterActive
	case "completed":
		return filterCompleted
	default:
		return filterAll
	}
}

// deleteToastPrefix correlates a countdown toast with its pending record.
const deleteToastPrefix = "del-"

// Model is the reconciliation view: the locally held list, the tri-state
// filter, edit state, pending deletes and the toast queue. All transitions
// run through Update; nothing else mutates view state.
type Model struct {
	api     *client.Client
	cfg     config.Config
	cfgPath string
	keys    config.Keymap
	th      theme

	loading  bool
	loadErr  string
	locale   string
	timezone string

	todos  []model.Todo
	cursor int
	filter filter

	adding  bool
	editing bool
	editID  string
	input   textinput.Model

	// At-most-one in-flight mutation; cooperative, enforced by ignoring
	// submissions while a request is outstanding.
	inflight bool

	toasts  *notify.Queue
	ticking bool
	// Deferred deletes scheduled by record id; the entry is dropped on undo
	// and the actual delete intent fires only when the undo window lapses.
	pendingDeletes map[string]string

	flashTab filter
	flashOn  bool
	flashSeq int

	status      string
	width       int
	undoSeconds int
}

func newModel(api *client.Client, cfg config.Config, cfgPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 256
	ti.Width = 40

	undoSeconds := cfg.UndoWindowMS / 1000
	if undoSeconds < 1 {
		undoSeconds = 1
	}

	return Model{
		api:            api,
		cfg:            cfg,
		cfgPath:        cfgPath,
		keys:           cfg.Keys,
		th:             newTheme(cfg.Theme),
		loading:        true,
		filter:         parseFilter(cfg.DefaultFilter),
		input:          ti,
		toasts:         notify.NewQueue(),
		pendingDeletes: make(map[string]string),
		status:         "Loading…",
		undoSeconds:    undoSeconds,
	}
}

// Run starts the interactive session.
func Run(api *client.Client, cfg config.Config, cfgPath string) error {
	program := tea.NewProgram(newModel(api, cfg, cfgPath), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, load(m.api))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return m.reconcileLoad(msg)
	case actionMsg:
		return m.reconcile(msg)
	case tickMsg:
		return m.reconcileTick()
	case flashMsg:
		if msg.seq == m.flashSeq {
			m.flashOn = false
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 10 {
			m.input.Width = msg.Width - 10
		}
		return m, nil
	case tea.KeyMsg:
		if m.loadErr != "" {
			return m.updateErrorView(msg.String())
		}
		if m.loading {
			if msg.String() == "ctrl+c" || msg.String() == m.keys.Quit {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.adding || m.editing {
			return m.updateInputMode(msg)
		}
		return m.updateListMode(msg.String())
	}
	return m, nil
}

func (m Model) updateErrorView(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "r":
		m.loadErr = ""
		m.loading = true
		m.status = "Loading…"
		return m, load(m.api)
	case "ctrl+c", "q", m.keys.Quit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.editing = false
		m.editID = ""
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.status = m.th.errText.Render("Title cannot be empty")
			return m, nil
		}
		if m.inflight {
			m.status = "Still working on the previous change…"
			return m, nil
		}
		m.inflight = true
		if m.editing {
			return m, dispatch(m.api, intent{
				kind:  intentUpdate,
				id:    m.editID,
				patch: model.Patch{Title: &title},
			})
		}
		return m, dispatch(m.api, intent{kind: intentCreate, title: title})
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.keys.Quit:
		return m, tea.Quit
	case m.keys.Down:
		m.cursor = clampCursor(m.cursor+1, len(m.visible()))
	case m.keys.Up:
		m.cursor = clampCursor(m.cursor-1, len(m.visible()))
	case m.keys.Add:
		m.adding = true
		m.input.SetValue("")
		m.input.Placeholder = "What needs doing?"
		m.input.Focus()
		m.status = "Add: type a title and press Enter"
	case m.keys.Toggle:
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		if m.inflight {
			m.status = "Still working on the previous change…"
			return m, nil
		}
		completed := !t.Completed
		m.inflight = true
		return m, dispatch(m.api, intent{
			kind:  intentUpdate,
			id:    t.ID,
			patch: model.Patch{Completed: &completed},
		})
	case m.keys.Edit:
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		m.editing = true
		m.editID = t.ID
		m.input.SetValue(t.Title)
		m.input.CursorEnd()
		m.input.Placeholder = "Edit title"
		m.input.Focus()
		m.status = "Edit: press Enter to save, Esc to cancel"
	case m.keys.Delete:
		return m.startDelete()
	case m.keys.Undo:
		return m.undoNewestDelete()
	case "esc":
		return m.dismissNewestToast()
	case m.keys.Filter:
		m.filter = (m.filter + 1) % 3
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		m.announceCounts()
	case m.keys.Theme:
		m.cfg.Theme = nextThemeMode(m.cfg.Theme)
		m.th = newTheme(m.cfg.Theme)
		if m.cfgPath != "" {
			if err := config.Save(m.cfgPath, m.cfg); err != nil {
				m.status = fmt.Sprintf("theme %s (not saved: %v)", m.cfg.Theme, err)
				return m, nil
			}
		}
		m.status = "Theme: " + m.cfg.Theme
	}
	return m, nil
}

// startDelete puts the record in the pending-delete state and opens the undo
// window. The actual delete intent fires only when the window lapses.
func (m Model) startDelete() (tea.Model, tea.Cmd) {
	t, ok := m.current()
	if !ok {
		return m, nil
	}
	if _, pending := m.pendingDeletes[t.ID]; pending {
		return m, nil
	}
	toastID := m.toasts.Add(notify.Notification{
		ID:          deleteToastPrefix + t.ID,
		Title:       fmt.Sprintf("Deleted %q", t.Title),
		Description: fmt.Sprintf("press %s to undo", m.keys.Undo),
		Countdown:   true,
		Seconds:     m.undoSeconds,
	})
	m.pendingDeletes[t.ID] = toastID
	m.status = fmt.Sprintf("Deleting %q — press %s to undo", t.Title, m.keys.Undo)
	cmd := m.ensureTick()
	return m, cmd
}

func (m Model) undoNewestDelete() (tea.Model, tea.Cmd) {
	items := m.toasts.Items()
	for i := len(items) - 1; i >= 0; i-- {
		todoID, ok := strings.CutPrefix(items[i].ID, deleteToastPrefix)
		if !ok {
			continue
		}
		m.toasts.Undo(items[i].ID)
		delete(m.pendingDeletes, todoID)
		m.status = "Restored"
		return m, nil
	}
	return m, nil
}

// dismissNewestToast closes the newest toast without undo; for a delete
// toast that commits the deferred delete immediately.
func (m Model) dismissNewestToast() (tea.Model, tea.Cmd) {
	items := m.toasts.Items()
	if len(items) == 0 {
		return m, nil
	}
	id := items[len(items)-1].ID
	m.toasts.Remove(id)
	mm, cmd := m.commitScheduled([]string{id})
	return mm, cmd
}

func (m Model) reconcileLoad(msg loadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.loadErr = msg.err.Error()
		return m, nil
	}
	m.todos = msg.todos
	model.SortCreatedDesc(m.todos)
	m.locale = msg.page.Locale
	m.timezone = msg.page.Timezone
	m.cursor = clampCursor(m.cursor, len(m.visible()))
	m.announceCounts()
	return m, nil
}

// reconcile merges a dispatcher result into the local list. Errors never
// mutate the list; they surface only as a transient toast.
func (m Model) reconcile(msg actionMsg) (tea.Model, tea.Cmd) {
	m.inflight = false

	if msg.err != nil {
		if msg.kind == intentUpdate && m.editing {
			// The edit state does not persist an error; the item shows its
			// last confirmed value once the toast is gone.
			m.editing = false
			m.editID = ""
			m.input.SetValue("")
			m.input.Blur()
		}
		m.toasts.Add(notify.Notification{
			Title:       failureTitle(msg.kind),
			Description: msg.err.Error(),
			Countdown:   true,
			Seconds:     5,
		})
		m.status = m.th.errText.Render(msg.err.Error())
		cmd := m.ensureTick()
		return m, cmd
	}

	_, prevActive, prevCompleted := model.Counts(m.todos)

	switch msg.kind {
	case intentCreate:
		m.todos = append(m.todos, msg.todo)
		model.SortCreatedDesc(m.todos)
		// Input cleared, focus stays on the entry field for the next add.
		m.input.SetValue("")
		m.input.Focus()
		m.status = fmt.Sprintf("Added %q", msg.todo.Title)
	case intentUpdate:
		for i := range m.todos {
			if m.todos[i].ID == msg.todo.ID {
				m.todos[i] = msg.todo
				break
			}
		}
		m.editing = false
		m.editID = ""
		m.input.SetValue("")
		m.input.Blur()
		m.status = fmt.Sprintf("Updated %q", msg.todo.Title)
	case intentDelete:
		kept := m.todos[:0]
		for _, t := range m.todos {
			if t.ID != msg.id {
				kept = append(kept, t)
			}
		}
		m.todos = kept
		delete(m.pendingDeletes, msg.id)
		m.status = "Deleted"
	}

	m.cursor = clampCursor(m.cursor, len(m.visible()))
	return m.withFlash(prevActive, prevCompleted)
}

// reconcileTick advances toast countdowns and commits any deferred delete
// whose undo window just lapsed.
func (m Model) reconcileTick() (tea.Model, tea.Cmd) {
	expired := m.toasts.Tick()
	mm, cmd := m.commitScheduled(expired)
	if mm.toasts.Pending() {
		return mm, tea.Batch(cmd, tick())
	}
	mm.ticking = false
	return mm, cmd
}

func (m Model) commitScheduled(toastIDs []string) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, toastID := range toastIDs {
		todoID, ok := strings.CutPrefix(toastID, deleteToastPrefix)
		if !ok {
			continue
		}
		if _, scheduled := m.pendingDeletes[todoID]; !scheduled {
			continue
		}
		// The window lapsed; the schedule entry is consumed and undo is
		// no longer possible.
		delete(m.pendingDeletes, todoID)
		m.inflight = true
		cmds = append(cmds, dispatch(m.api, intent{kind: intentDelete, id: todoID}))
	}
	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

// withFlash highlights a filter tab for 600ms when its bucket grew while a
// different filter is selected. Purely cosmetic.
func (m Model) withFlash(prevActive, prevCompleted int) (tea.Model, tea.Cmd) {
	_, active, completed := model.Counts(m.todos)
	var tab filter
	hit := false
	if active > prevActive && m.filter != filterActive {
		tab, hit = filterActive, true
	}
	if completed > prevCompleted && m.filter != filterCompleted {
		tab, hit = filterCompleted, true
	}
	if !hit {
		return m, nil
	}
	m.flashSeq++
	m.flashTab = tab
	m.flashOn = true
	return m, flashDecay(m.flashSeq)
}

func (m *Model) announceCounts() {
	all, active, completed := model.Counts(m.todos)
	m.status = fmt.Sprintf("%s filter — %d all, %d active, %d completed",
		m.filter.label(), all, active, completed)
}

func (m Model) visible() []model.Todo {
	if m.filter == filterAll {
		return m.todos
	}
	out := make([]model.Todo, 0, len(m.todos))
	for _, t := range m.todos {
		if (m.filter == filterCompleted) == t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func (m Model) current() (model.Todo, bool) {
	vis := m.visible()
	if len(vis) == 0 || m.cursor < 0 || m.cursor >= len(vis) {
		return model.Todo{}, false
	}
	return vis[m.cursor], true
}

func (m Model) View() string {
	if m.loadErr != "" {
		var b strings.Builder
		b.WriteString(m.th.errText.Render("Could not load todos"))
		b.WriteString("\n\n")
		b.WriteString(m.loadErr)
		b.WriteString("\n\n")
		b.WriteString(m.th.muted.Render("r retry · q quit"))
		return b.String()
	}
	if m.loading {
		return "Loading todos…"
	}

	var b strings.Builder
	b.WriteString(m.th.title.Render("haru"))
	if m.locale != "" || m.timezone != "" {
		b.WriteString("   ")
		b.WriteString(m.th.muted.Render(m.locale + " · " + m.timezone))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	vis := m.visible()
	if len(vis) == 0 {
		b.WriteString(m.th.muted.Render("Nothing here. Press '" + m.keys.Add + "' to add a todo."))
		b.WriteString("\n")
	}
	for i, t := range vis {
		cursor := "  "
		if i == m.cursor && !m.adding && !m.editing {
			cursor = m.th.cursor.Render("> ")
		}
		checkbox := "[ ]"
		if t.Completed {
			checkbox = m.th.success.Render("[x]")
		}
		title := t.Title
		switch {
		case m.pendingDeletes[t.ID] != "":
			title = m.th.itemDying.Render(title + " (deleting…)")
		case t.Completed:
			title = m.th.itemDone.Render(title)
		default:
			title = m.th.item.Render(title)
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, checkbox, title))
	}

	if m.adding || m.editing {
		label := "Add todo"
		if m.editing {
			label = "Edit todo"
		}
		b.WriteString("\n")
		b.WriteString(m.th.input.Render(label + "\n" + m.input.View()))
		b.WriteString("\n")
	}

	for _, n := range m.toasts.Items() {
		line := n.Title
		if n.Countdown {
			line = fmt.Sprintf("(%ds) %s", n.Seconds, line)
		}
		if n.Description != "" {
			line += " — " + n.Description
		}
		b.WriteString("\n")
		b.WriteString(m.th.toast.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(m.th.muted.Render(m.renderHelp()))
	return b.String()
}

func failureTitle(k intentKind) string {
	switch k {
	case intentCreate:
		return "Create failed"
	case intentUpdate:
		return "Update failed"
	default:
		return "Delete failed"
	}
}

func (m Model) renderTabs() string {
	all, active, completed := model.Counts(m.todos)
	render := func(f filter, n int) string {
		label := fmt.Sprintf("%s (%d)", f.label(), n)
		switch {
		case m.flashOn && m.flashTab == f:
			return m.th.tabFlash.Render(label)
		case m.filter == f:
			return m.th.tabActive.Render(label)
		default:
			return m.th.tab.Render(label)
		}
	}
	return strings.Join([]string{
		render(filterAll, all),
		render(filterActive, active),
		render(filterCompleted, completed),
	}, "  ")
}

func (m Model) renderHelp() string {
	k := m.keys
	return fmt.Sprintf("%s/%s move · %s add · %s toggle · %s edit · %s delete · %s undo · %s filter · %s theme · %s quit",
		k.Up, k.Down, k.Add, keyLabel(k.Toggle), k.Edit, k.Delete, k.Undo, k.Filter, k.Theme, k.Quit)
}

func keyLabel(k string) string {
	if strings.TrimSpace(k) == "" {
		return "space"
	}
	return k
}

func (m *Model) ensureTick() tea.Cmd {
	if m.ticking || !m.toasts.Pending() {
		return nil
	}
	m.ticking = true
	return tick()
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
