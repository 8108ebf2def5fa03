package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Credentials is what the login form collects. GoogleIDToken, when set,
// takes precedence over email and password.
type Credentials struct {
	Email         string
	Password      string
	GoogleIDToken string
}

var errIncompleteCredentials = errors.New("enter an email and a password")

const (
	fieldEmail = iota
	fieldPassword
)

// LoginForm asks for an email and a password. ctrl+g switches to pasting
// the Firebase ID token of a Google sign-in.
type LoginForm struct {
	fields  []textinput.Model
	token   textinput.Model
	google  bool
	focused int
	styles  Styles
}

func NewLoginForm(styles Styles) LoginForm {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Width = 30

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 72
	password.Width = 30

	token := textinput.New()
	token.Placeholder = "Google ID token"
	token.Width = 40

	return LoginForm{fields: []textinput.Model{email, password}, token: token, styles: styles}
}

// Focus puts the cursor on the first field
func (f *LoginForm) Focus() tea.Cmd {
	f.blurAll()
	if f.google {
		return f.token.Focus()
	}
	f.focused = fieldEmail
	return f.fields[fieldEmail].Focus()
}

// Reset clears every field, including the password
func (f *LoginForm) Reset() {
	f.blurAll()
	for i := range f.fields {
		f.fields[i].SetValue("")
	}
	f.token.SetValue("")
	f.google = false
	f.focused = fieldEmail
}

func (f *LoginForm) blurAll() {
	for i := range f.fields {
		f.fields[i].Blur()
	}
	f.token.Blur()
}

// Credentials returns the trimmed input, or an error when a field is blank
func (f LoginForm) Credentials() (Credentials, error) {
	if f.google {
		token := strings.TrimSpace(f.token.Value())
		if token == "" {
			return Credentials{}, errors.New("paste a Google ID token")
		}
		return Credentials{GoogleIDToken: token}, nil
	}
	email := strings.TrimSpace(f.fields[fieldEmail].Value())
	password := f.fields[fieldPassword].Value()
	if email == "" || password == "" {
		return Credentials{}, errIncompleteCredentials
	}
	return Credentials{Email: email, Password: password}, nil
}

func (f LoginForm) Update(msg tea.Msg) (LoginForm, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+g":
			f.google = !f.google
			cmd := f.Focus()
			return f, cmd
		case "tab", "shift+tab", "up", "down":
			if f.google {
				return f, nil
			}
			f.fields[f.focused].Blur()
			f.focused = (f.focused + 1) % len(f.fields)
			cmd := f.fields[f.focused].Focus()
			return f, cmd
		}
	}

	var cmd tea.Cmd
	if f.google {
		f.token, cmd = f.token.Update(msg)
	} else {
		f.fields[f.focused], cmd = f.fields[f.focused].Update(msg)
	}
	return f, cmd
}

func (f LoginForm) View() string {
	var b strings.Builder
	if f.google {
		b.WriteString(f.styles.Label.Render("Google ID token: "))
		b.WriteString(f.token.View())
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(f.styles.Label.Render("Email:    "))
	b.WriteString(f.fields[fieldEmail].View())
	b.WriteString("\n")
	b.WriteString(f.styles.Label.Render("Password: "))
	b.WriteString(f.fields[fieldPassword].View())
	b.WriteString("\n")
	return b.String()
}
