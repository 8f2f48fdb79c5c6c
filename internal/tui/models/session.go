package models

import (
	"sync"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
	// InputModeFolder reuses the input line to enter a host folder path.
	InputModeFolder
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	case InputModeFolder:
		return "FOLDER"
	default:
		return "NORMAL"
	}
}

// SessionModel is the state the connect TUI keeps between updates.
type SessionModel struct {
	mu sync.RWMutex

	ready     bool
	inputMode InputMode
	dialog    bool
	err       error
}

func NewSessionModel() *SessionModel {
	return &SessionModel{inputMode: InputModeNormal}
}

func (m *SessionModel) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *SessionModel) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// DialogOpen reports whether the connect dialog is shown over the terminal.
func (m *SessionModel) DialogOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dialog
}

func (m *SessionModel) SetDialogOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialog = open
}

func (m *SessionModel) GetError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *SessionModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *SessionModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *SessionModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

// InputActive reports whether key presses go to the input line.
func (m *SessionModel) InputActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode != InputModeNormal
}
