package models

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.viam.com/test"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/transport"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/workflow"
)

type recordingSender struct {
	ch chan tea.Msg
}

func newRecordingSender() *recordingSender {
	return &recordingSender{ch: make(chan tea.Msg, 16)}
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.ch <- msg
}

func (s *recordingSender) next(t *testing.T) tea.Msg {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message sent")
		return nil
	}
}

func TestInputModeString(t *testing.T) {
	test.That(t, InputModeNormal.String(), test.ShouldEqual, "NORMAL")
	test.That(t, InputModeInsert.String(), test.ShouldEqual, "INSERT")
	test.That(t, InputModeFolder.String(), test.ShouldEqual, "FOLDER")

	m := NewSessionModel()
	test.That(t, m.InputActive(), test.ShouldBeFalse)
	m.SetInputMode(InputModeFolder)
	test.That(t, m.InputActive(), test.ShouldBeTrue)
}

func TestBridgeQueuesInOrder(t *testing.T) {
	b := NewBridge()
	b.Reset()
	b.SetPlatformAvailable(true)
	b.SetButtons(workflow.StepButtons(1))
	b.Observe(workflow.Event{Phase: workflow.PhaseSelecting})
	b.Observe(workflow.Event{Phase: workflow.PhasePartial, State: workflow.Partial})
	b.Output(transport.Message{Text: "a"})
	b.Output(transport.Message{Text: "b"})

	batch := b.Drain()
	test.That(t, batch.View.Open, test.ShouldBeTrue)
	test.That(t, batch.View.Available, test.ShouldBeTrue)
	test.That(t, batch.View.Buttons, test.ShouldResemble, workflow.Buttons{Request: true})
	test.That(t, batch.Events, test.ShouldHaveLength, 2)
	test.That(t, batch.Events[1].Phase, test.ShouldEqual, workflow.PhasePartial)
	test.That(t, batch.Output[0].Text+batch.Output[1].Text, test.ShouldEqual, "ab")

	b.Close()
	batch = b.Drain()
	test.That(t, batch.View.Open, test.ShouldBeFalse)
	test.That(t, batch.Events, test.ShouldBeEmpty)
}

func TestBridgeCoalescesRefresh(t *testing.T) {
	s := newRecordingSender()
	b := NewBridge()
	b.Attach(s)
	_, ok := s.next(t).(RefreshMsg)
	test.That(t, ok, test.ShouldBeTrue)

	// Nothing new is posted until the model drains.
	b.Output(transport.Message{Text: "x"})
	b.Output(transport.Message{Text: "y"})
	select {
	case msg := <-s.ch:
		t.Fatalf("unexpected %T before drain", msg)
	case <-time.After(50 * time.Millisecond):
	}

	test.That(t, b.Drain().Output, test.ShouldHaveLength, 2)
	b.Output(transport.Message{Text: "z"})
	_, ok = s.next(t).(RefreshMsg)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestBridgeChoose(t *testing.T) {
	s := newRecordingSender()
	b := NewBridge()
	b.Attach(s)
	s.next(t)

	ports := []boardlink.PortInfo{{Name: "ttyACM0", Path: "/dev/ttyACM0"}}
	type result struct {
		port boardlink.PortInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		p, err := b.Choose(context.Background(), ports)
		done <- result{p, err}
	}()

	req, ok := s.next(t).(ChooseMsg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, req.Ports, test.ShouldResemble, ports)
	req.Reply(components.ChosenMsg{Port: ports[0], OK: true})

	res := <-done
	test.That(t, res.err, test.ShouldBeNil)
	test.That(t, res.port.Path, test.ShouldEqual, "/dev/ttyACM0")
}

func TestBridgeChooseCancelled(t *testing.T) {
	s := newRecordingSender()
	b := NewBridge()
	b.Attach(s)
	s.next(t)

	done := make(chan error, 1)
	go func() {
		_, err := b.Choose(context.Background(), nil)
		done <- err
	}()
	s.next(t).(ChooseMsg).Reply(components.ChosenMsg{})
	test.That(t, <-done, test.ShouldBeError, boardlink.ErrSelectionCancelled)
}

func TestBridgeChooseContext(t *testing.T) {
	b := NewBridge()
	_, err := b.Choose(context.Background(), nil)
	test.That(t, err, test.ShouldBeError, ErrNoProgram)

	s := newRecordingSender()
	b.Attach(s)
	s.next(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.Choose(ctx, nil)
		done <- err
	}()
	s.next(t)
	cancel()
	test.That(t, <-done, test.ShouldBeError, context.Canceled)
}
