package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"thing-counter/internal/client"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/logger"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// resubscribeDelay spaces out listeners reopened after the server ended one
var resubscribeDelay = time.Second

type focus int

const (
	focusList focus = iota
	focusForm
	focusLogin
)

// AppModel is the root model. It mirrors the signed-in user's counters
// collection from the live listener and routes writes to the Backend. The
// list is only ever changed by snapshots, never by a write result.
type AppModel struct {
	ctx     context.Context
	backend Backend
	auth    Auth
	log     logger.Logger
	styles  Styles

	authenticated bool
	uid           string

	list     *model.CounterList
	counters []CounterModel
	cursor   int
	focus    focus
	form     textinput.Model
	login    LoginForm

	sub Subscription
	gen int
	// resync drops the mirror when the next snapshot arrives, after the
	// server ended a subscription and a new one was opened
	resync bool

	status    string
	statusErr bool
	width     int
}

// NewAppModel creates the app. A non-empty uid starts it signed in, as
// when a persisted session is restored.
func NewAppModel(ctx context.Context, backend Backend, auth Auth, uid string, log logger.Logger) AppModel {
	form := textinput.New()
	form.Placeholder = "new counter name"
	form.CharLimit = 100
	form.Width = 30

	return AppModel{
		ctx:           ctx,
		backend:       backend,
		auth:          auth,
		log:           log.WithComponent("ui"),
		styles:        DefaultStyles(),
		authenticated: uid != "",
		uid:           uid,
		list:          model.NewCounterList(),
		form:          form,
		login:         NewLoginForm(DefaultStyles()),
	}
}

func (m AppModel) Authenticated() bool      { return m.authenticated }
func (m AppModel) Counters() []model.Counter { return m.list.Items() }
func (m AppModel) Status() string            { return m.status }

func (m AppModel) Init() tea.Cmd {
	if m.authenticated {
		return m.listen()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case signedInMsg:
		m.authenticated = true
		m.uid = msg.uid
		m.focus = focusList
		m.login.Reset()
		m.setStatus("signed in", false)
		m.gen++
		m.list.Reset()
		m.counters = nil
		return m, m.listen()

	case signedOutMsg:
		if msg.err != nil {
			m.log.WithFields(map[string]interface{}{"error": msg.err.Error()}).Warn("Sign-out request failed")
		}
		m.setStatus("signed out", false)
		return m, nil

	case authErrMsg:
		m.log.WithFields(map[string]interface{}{"error": msg.err.Error()}).Error("Sign-in failed")
		m.setStatus("sign-in failed: "+msg.err.Error(), true)
		return m, nil

	case listenerStartedMsg:
		if msg.gen != m.gen || !m.authenticated {
			_ = msg.sub.Close()
			return m, nil
		}
		m.sub = msg.sub
		return m, waitForSnapshot(m.gen, msg.sub)

	case snapshotMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if m.resync {
			m.list.Reset()
			m.resync = false
		}
		m.list.ApplySnapshot(msg.snapshot)
		m.syncCounters()
		return m, waitForSnapshot(m.gen, m.sub)

	case listenerEndedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.sub = nil
		if errors.Is(msg.err, client.ErrListenerEnded) && m.authenticated {
			m.log.Info("Listener ended by server, subscribing again")
			m.gen++
			m.resync = true
			m.setStatus("resyncing", false)
			listen := m.listen()
			return m, tea.Tick(resubscribeDelay, func(time.Time) tea.Msg { return listen() })
		}
		if msg.err != nil {
			m.log.WithFields(map[string]interface{}{"error": msg.err.Error()}).Warn("Listener ended")
			m.setStatus("live updates stopped: "+msg.err.Error(), true)
		}
		return m, nil

	case IncreaseRequested:
		return m, m.write("increase", func(ctx context.Context) error {
			_, err := m.backend.Increase(ctx, m.uid, msg.ID, msg.Delta)
			return err
		})

	case RenameRequested:
		return m, m.write("rename", func(ctx context.Context) error {
			_, err := m.backend.RenameCounter(ctx, m.uid, msg.ID, msg.Name)
			return err
		})

	case writeDoneMsg:
		if msg.err != nil {
			m.log.WithFields(map[string]interface{}{
				"operation": msg.op,
				"error":     msg.err.Error(),
			}).Error("Counter write failed")
			m.setStatus(msg.op+" failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus("", false)
		return m, nil
	}

	switch m.focus {
	case focusForm:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	case focusLogin:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.closeListener()
		return m, tea.Quit
	}

	if m.focus == focusLogin {
		switch msg.String() {
		case "enter":
			return m.submitLogin()
		case "esc":
			m.focus = focusList
			m.login.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	if m.focus == focusForm {
		switch msg.String() {
		case "enter":
			return m.submitForm()
		case "esc", "tab":
			m.focus = focusList
			m.form.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	if c := m.selected(); c != nil && c.Editing() {
		updated, cmd := c.Update(msg)
		m.counters[m.cursor] = updated
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.closeListener()
		return m, tea.Quit
	case "l":
		if !m.authenticated {
			m.focus = focusLogin
			cmd := m.login.Focus()
			return m, cmd
		}
		return m, nil
	case "o":
		if m.authenticated {
			return m.signOut()
		}
		return m, nil
	case "tab", "n":
		if m.authenticated {
			m.focus = focusForm
			cmd := m.form.Focus()
			return m, cmd
		}
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.counters)-1 {
			m.cursor++
		}
		return m, nil
	}

	if c := m.selected(); c != nil {
		updated, cmd := c.Update(msg)
		m.counters[m.cursor] = updated
		return m, cmd
	}
	return m, nil
}

// submitForm writes a new counter. Blank input performs no write.
func (m AppModel) submitForm() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.form.Value())
	if name == "" {
		m.setStatus("a counter needs a name", true)
		return m, nil
	}
	m.form.SetValue("")
	return m, m.write("create", func(ctx context.Context) error {
		_, err := m.backend.CreateCounter(ctx, m.uid, name)
		return err
	})
}

// submitLogin signs in with the form's credentials. Blank fields make no request.
func (m AppModel) submitLogin() (tea.Model, tea.Cmd) {
	creds, err := m.login.Credentials()
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	m.setStatus("signing in…", false)
	return m, m.signIn(creds)
}

func (m AppModel) signIn(creds Credentials) tea.Cmd {
	ctx, auth := m.ctx, m.auth
	return func() tea.Msg {
		uid, err := auth.SignIn(ctx, creds)
		if err != nil {
			return authErrMsg{err: err}
		}
		if uid == "" {
			return authErrMsg{err: errors.New("sign-in returned no user")}
		}
		return signedInMsg{uid: uid}
	}
}

// signOut drops local state immediately; the server call runs in the background
func (m AppModel) signOut() (tea.Model, tea.Cmd) {
	m.closeListener()
	m.authenticated = false
	m.uid = ""
	m.list.Reset()
	m.counters = nil
	m.cursor = 0
	m.resync = false
	m.focus = focusList
	m.form.Blur()
	m.form.SetValue("")

	ctx, auth := m.ctx, m.auth
	return m, func() tea.Msg {
		return signedOutMsg{err: auth.SignOut(ctx)}
	}
}

// listen opens a listener for the current generation; messages from older
// generations are ignored.
func (m AppModel) listen() tea.Cmd {
	gen, ctx, backend, uid := m.gen, m.ctx, m.backend, m.uid
	return func() tea.Msg {
		sub, err := backend.Listen(ctx, uid)
		if err != nil {
			return listenerEndedMsg{gen: gen, err: err}
		}
		return listenerStartedMsg{gen: gen, sub: sub}
	}
}

func (m *AppModel) closeListener() {
	m.gen++
	if m.sub != nil {
		_ = m.sub.Close()
		m.sub = nil
	}
}

// waitForSnapshot reads exactly one snapshot so they are applied in arrival order
func waitForSnapshot(gen int, sub Subscription) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-sub.Snapshots()
		if !ok {
			return listenerEndedMsg{gen: gen, err: sub.Err()}
		}
		return snapshotMsg{gen: gen, snapshot: snapshot}
	}
}

func (m AppModel) write(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return writeDoneMsg{op: op, err: fn(ctx)}
	}
}

// syncCounters rebuilds the row models from the list, keeping rename state by id
func (m *AppModel) syncCounters() {
	previous := make(map[string]CounterModel, len(m.counters))
	for _, c := range m.counters {
		previous[c.Counter().ID] = c
	}

	items := m.list.Items()
	rows := make([]CounterModel, 0, len(items))
	for _, item := range items {
		row, ok := previous[item.ID]
		if ok {
			row.SetCounter(item)
		} else {
			row = NewCounterModel(item, m.styles)
		}
		rows = append(rows, row)
	}
	m.counters = rows
	if m.cursor >= len(rows) {
		m.cursor = max(len(rows)-1, 0)
	}
}

func (m *AppModel) selected() *CounterModel {
	if m.focus != focusList || m.cursor >= len(m.counters) {
		return nil
	}
	return &m.counters[m.cursor]
}

func (m *AppModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m AppModel) View() string {
	var b strings.Builder
	b.WriteString(m.navView())
	b.WriteString("\n")

	if !m.authenticated && m.focus == focusLogin {
		b.WriteString(m.login.View())
	} else if !m.authenticated {
		b.WriteString(m.styles.Label.Render("Sign in to see your counters."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.Label.Render("New counter: "))
		b.WriteString(m.form.View())
		b.WriteString("\n\n")
		if len(m.counters) == 0 {
			b.WriteString(m.styles.Label.Render("No counters yet."))
			b.WriteString("\n")
		}
		for i, c := range m.counters {
			b.WriteString(c.View(m.focus == focusList && i == m.cursor))
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		style := m.styles.Status
		if m.statusErr {
			style = m.styles.Error
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render(m.helpView()))
	return b.String()
}

func (m AppModel) navView() string {
	title := m.styles.Title.Render("Thing Counter")
	var right string
	if m.authenticated {
		right = m.styles.Label.Render(fmt.Sprintf("%s  [o] logout", m.uid))
	} else {
		right = m.styles.Label.Render("[l] login")
	}
	return m.styles.Nav.Render(lipgloss.JoinHorizontal(lipgloss.Top, title, "   ", right))
}

func (m AppModel) helpView() string {
	switch {
	case m.focus == focusLogin:
		return "tab next field · ctrl+g Google token · enter sign in · esc back"
	case !m.authenticated:
		return "l login · q quit"
	case m.focus == focusForm:
		return "enter create · esc back"
	default:
		return "tab new · ↑/↓ select · +/- change · r rename · o logout · q quit"
	}
}
