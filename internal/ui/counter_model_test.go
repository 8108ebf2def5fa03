package ui

import (
	"testing"

	"thing-counter/internal/counter/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterModel_IncreaseKeys(t *testing.T) {
	m := NewCounterModel(model.Counter{ID: "a", Name: "Alpha", Value: 2}, DefaultStyles())

	_, cmd := m.Update(key("+"))
	require.NotNil(t, cmd)
	assert.Equal(t, IncreaseRequested{ID: "a", Delta: 1}, cmd())

	_, cmd = m.Update(key("-"))
	require.NotNil(t, cmd)
	assert.Equal(t, IncreaseRequested{ID: "a", Delta: -1}, cmd())
}

func TestCounterModel_View(t *testing.T) {
	m := NewCounterModel(model.Counter{ID: "a", Name: "Alpha", Value: 42}, DefaultStyles())
	view := m.View(false)
	assert.Contains(t, view, "Alpha")
	assert.Contains(t, view, "42")
}

func TestCounterModel_RenameFlow(t *testing.T) {
	m := NewCounterModel(model.Counter{ID: "a", Name: "Alpha"}, DefaultStyles())

	m, _ = m.Update(key("r"))
	require.True(t, m.Editing())
	assert.Equal(t, "Alpha", m.input.Value())

	m.input.SetValue("  Beta  ")
	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, RenameRequested{ID: "a", Name: "Beta"}, cmd())
	assert.False(t, m.Editing())
	// the name changes only when a snapshot says so
	assert.Equal(t, "Alpha", m.Counter().Name)
}

func TestCounterModel_BlankRenameIgnored(t *testing.T) {
	m := NewCounterModel(model.Counter{ID: "a", Name: "Alpha"}, DefaultStyles())
	m, _ = m.Update(key("r"))
	m.input.SetValue(" \t ")

	m, cmd := m.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())
	assert.Contains(t, m.View(false), "Alpha")
}

func TestCounterModel_EscCancels(t *testing.T) {
	m := NewCounterModel(model.Counter{ID: "a", Name: "Alpha"}, DefaultStyles())
	m, _ = m.Update(key("r"))
	m.input.SetValue("Other")

	m, cmd := m.Update(key("esc"))
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())
}

func TestCounterModel_PlusWhileEditingIsText(t *testing.T) {
	m := NewCounterModel(model.Counter{ID: "a", Name: "Alpha"}, DefaultStyles())
	m, _ = m.Update(key("r"))
	m, _ = m.Update(key("+"))
	assert.True(t, m.Editing())
	assert.Equal(t, "Alpha+", m.input.Value())
}
