package models

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/transport"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/workflow"
)

// ErrNoProgram is returned by Choose before a program is attached.
var ErrNoProgram = errors.New("no interactive program attached")

// Sender posts messages into a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// RefreshMsg tells the model to drain the bridge.
type RefreshMsg struct{}

// ChooseMsg asks the model to show the device chooser and answer through Reply.
type ChooseMsg struct {
	Ports []boardlink.PortInfo
	reply chan components.ChosenMsg
}

// Reply hands the user's pick back to the waiting Choose call.
func (m ChooseMsg) Reply(res components.ChosenMsg) {
	select {
	case m.reply <- res:
	default:
	}
}

// ViewState mirrors what the workflow has told the connect dialog.
type ViewState struct {
	Open      bool
	Available bool
	Buttons   workflow.Buttons
	Folder    string
}

// Batch is everything queued since the last Drain.
type Batch struct {
	View   ViewState
	Events []workflow.Event
	Output []transport.Message
}

// Bridge connects the workflow to a bubbletea program. The workflow calls it from
// its own goroutines; the program picks changes up in order on RefreshMsg.
type Bridge struct {
	mu      sync.Mutex
	sender  Sender
	view    ViewState
	events  []workflow.Event
	output  []transport.Message
	pending bool
}

var (
	_ workflow.View    = (*Bridge)(nil)
	_ registry.Chooser = (*Bridge)(nil)
)

func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts delivering to s.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = s
	b.notifyLocked()
}

// Reset marks the dialog open with a clean slate before workflow.ShowConnect.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = ViewState{Open: true}
	b.notifyLocked()
}

func (b *Bridge) SetPlatformAvailable(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Available = available
	b.notifyLocked()
}

func (b *Bridge) SetButtons(buttons workflow.Buttons) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Buttons = buttons
	b.notifyLocked()
}

func (b *Bridge) SetWorkingFolder(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Folder = name
	b.notifyLocked()
}

func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Open = false
	b.notifyLocked()
}

// Observe queues a workflow event. Pass it to Workflow.Observe.
func (b *Bridge) Observe(ev workflow.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	b.notifyLocked()
}

// Output queues board output. Pass it to Workflow.Subscribe.
func (b *Bridge) Output(msg transport.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.output = append(b.output, msg)
	b.notifyLocked()
}

// Drain returns and clears everything queued.
func (b *Bridge) Drain() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := Batch{View: b.view, Events: b.events, Output: b.output}
	b.events, b.output = nil, nil
	b.pending = false
	return batch
}

// notifyLocked posts at most one RefreshMsg until the next Drain.
func (b *Bridge) notifyLocked() {
	if b.pending || b.sender == nil {
		return
	}
	b.pending = true
	go b.sender.Send(RefreshMsg{})
}

// Choose implements registry.Chooser by opening the chooser inside the program.
func (b *Bridge) Choose(ctx context.Context, ports []boardlink.PortInfo) (boardlink.PortInfo, error) {
	b.mu.Lock()
	sender := b.sender
	b.mu.Unlock()
	if sender == nil {
		return boardlink.PortInfo{}, ErrNoProgram
	}

	reply := make(chan components.ChosenMsg, 1)
	go sender.Send(ChooseMsg{Ports: ports, reply: reply})

	select {
	case res := <-reply:
		if !res.OK {
			return boardlink.PortInfo{}, boardlink.ErrSelectionCancelled
		}
		return res.Port, nil
	case <-ctx.Done():
		return boardlink.PortInfo{}, ctx.Err()
	}
}
