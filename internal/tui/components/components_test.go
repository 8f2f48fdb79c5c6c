package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.viam.com/test"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/workflow"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain", "hello\n", "hello\n"},
		{"carriage returns", "a\r\nb\r\n", "a\nb\n"},
		{"raw repl markers", "OK\x04\x04>", "OK>"},
		{"title escape", "\x1b]0;🐍 code.py | 9.0.0\x1b\\Hello", "Hello"},
		{"csi", "\x1b[2K\x1b[1Gdone", "done"},
		{"tab kept", "a\tb", "a\tb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, CleanText(tc.in), test.ShouldEqual, tc.want)
		})
	}
}

func TestFormatTextJoinsStream(t *testing.T) {
	now := time.Now()
	df := NewDataFormatter(DisplayText)
	out := df.Format([]OutputMsg{
		{Time: now, Text: "Hel"},
		{Time: now, Text: "lo\r\n>>> "},
		{Time: now, Text: "print(1)\r", IsTX: true},
		{Time: now, Text: "1\r\n"},
	})

	lines := strings.Split(out, "\n")
	test.That(t, lines, test.ShouldHaveLength, 4)
	test.That(t, lines[0], test.ShouldEqual, "Hello")
	test.That(t, lines[1], test.ShouldEqual, ">>> ")
	test.That(t, lines[2], test.ShouldContainSubstring, "TX")
	test.That(t, lines[2], test.ShouldEndWith, "print(1)")
	test.That(t, lines[3], test.ShouldEqual, "1")
}

func TestFormatTextSplitEscape(t *testing.T) {
	df := NewDataFormatter(DisplayText)
	out := df.Format([]OutputMsg{
		{Time: time.Now(), Text: "\x1b]0;🐍code.py | 9.0"},
		{Time: time.Now(), Text: ".0\x1b\\>>> "},
	})
	test.That(t, out, test.ShouldEqual, ">>> ")
}

func TestStripperCarriesState(t *testing.T) {
	s := NewStripper()
	test.That(t, s.Write("done\r\n\x1b["), test.ShouldEqual, "done\n")
	test.That(t, s.Write("2K\x1b]0;title"), test.ShouldEqual, "")
	test.That(t, s.Write("\x1b\\Hello 🐍\t"), test.ShouldEqual, "Hello 🐍\t")
}

func TestFormatHexOneRowPerChunk(t *testing.T) {
	df := NewDataFormatter(DisplayText)
	df.ToggleHex()
	test.That(t, df.Mode(), test.ShouldEqual, DisplayHex)

	out := df.Format([]OutputMsg{
		{Time: time.Now(), Data: []byte("Hi"), Text: "Hi"},
		{Time: time.Now(), Text: "\x03", IsTX: true},
	})
	lines := strings.Split(out, "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldEndWith, "48 69")
	test.That(t, lines[1], test.ShouldContainSubstring, "TX")
	test.That(t, lines[1], test.ShouldEndWith, "03")
}

func TestTerminalBoundsScrollback(t *testing.T) {
	term := NewTerminal(80, 10)
	term.limit = 3
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		term.Append(OutputMsg{Text: s})
	}
	test.That(t, term.Messages(), test.ShouldHaveLength, 3)
	test.That(t, term.View(), test.ShouldContainSubstring, "cde")

	term.Clear()
	test.That(t, term.Messages(), test.ShouldBeEmpty)
}

func TestParseHex(t *testing.T) {
	cases := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{in: "48656C6C6F", want: []byte("Hello")},
		{in: "48 65 6c", want: []byte("Hel")},
		{in: "0x03 0x04", want: []byte{0x03, 0x04}},
		{in: "", wantErr: true},
		{in: "123", wantErr: true},
		{in: "zz", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseHex(tc.in)
		if tc.wantErr {
			test.That(t, err, test.ShouldNotBeNil)
			continue
		}
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldResemble, tc.want)
	}
}

func TestInputPayload(t *testing.T) {
	in := NewInput()
	in.SetValue("print('hi')")
	payload, err := in.Payload()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(payload), test.ShouldEqual, "print('hi')\r")

	in.ToggleSendingMode()
	test.That(t, in.GetSendingMode(), test.ShouldEqual, SendingModeHex)
	in.SetValue("03")
	payload, err = in.Payload()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, payload, test.ShouldResemble, []byte{0x03})
}

func TestInputHistory(t *testing.T) {
	in := NewInput()
	in.AddToHistory("one")
	in.AddToHistory("two")
	in.AddToHistory("two")
	in.AddToHistory("  ")

	in.SetValue("draft")
	in.NavigateHistoryUp()
	test.That(t, in.Value(), test.ShouldEqual, "two")
	in.NavigateHistoryUp()
	test.That(t, in.Value(), test.ShouldEqual, "one")
	in.NavigateHistoryUp()
	test.That(t, in.Value(), test.ShouldEqual, "one")
	in.NavigateHistoryDown()
	test.That(t, in.Value(), test.ShouldEqual, "two")
	in.NavigateHistoryDown()
	test.That(t, in.Value(), test.ShouldEqual, "draft")
}

func TestStatusBarKeepsTriggerUntilProgress(t *testing.T) {
	sb := NewStatusBar(NewConnectionInfo(boardlink.DefaultConfig()))
	test.That(t, sb.Status(), test.ShouldEqual, "disconnected")

	unplugged := errors.New("unplugged")
	sb.SetEvent(workflow.Event{State: workflow.Disconnected, Phase: workflow.PhaseDisconnected, Err: unplugged})
	test.That(t, sb.Status(), test.ShouldEqual, "unplugged")

	sb.SetEvent(workflow.Event{State: workflow.Disconnected, Phase: workflow.PhaseSelecting})
	test.That(t, sb.Status(), test.ShouldEqual, "unplugged")

	sb.SetEvent(workflow.Event{State: workflow.Partial, Phase: workflow.PhasePartial})
	test.That(t, sb.Status(), test.ShouldEqual, "identifying...")

	sb.SetDevice("Adafruit Feather")
	sb.SetEvent(workflow.Event{State: workflow.Connected, Phase: workflow.PhaseConnected, Identity: "DF625857"})
	sb.SetWidth(160)
	bar := sb.Render("NORMAL", "TEXT", "12:00:00")
	test.That(t, bar, test.ShouldContainSubstring, "Adafruit Feather")
	test.That(t, bar, test.ShouldContainSubstring, "DF625857")
	test.That(t, bar, test.ShouldContainSubstring, "115200 baud 8N1")
}

func TestStepsView(t *testing.T) {
	unavailable := Steps{}.View()
	test.That(t, unavailable, test.ShouldContainSubstring, "not available")
	test.That(t, unavailable, test.ShouldNotContainSubstring, "Request device")

	steps := Steps{Available: true, Buttons: workflow.StepButtons(2), Folder: "CIRCUITPY"}.View()
	test.That(t, steps, test.ShouldContainSubstring, "Request device")
	test.That(t, steps, test.ShouldContainSubstring, "Select folder")
	test.That(t, steps, test.ShouldContainSubstring, "CIRCUITPY")
	test.That(t, steps, test.ShouldContainSubstring, "Use folder")
}

func choosePorts() []boardlink.PortInfo {
	return []boardlink.PortInfo{
		{Name: "ttyACM0", Path: "/dev/ttyACM0", VendorID: "239A", ProductID: "80F4", SerialNumber: "A1"},
		{Name: "ttyACM1", Path: "/dev/ttyACM1", VendorID: "239A", ProductID: "80F4", SerialNumber: "B2"},
	}
}

func TestChooserSelect(t *testing.T) {
	c := NewChooser(choosePorts())
	c, _ = c.Update(tea.KeyMsg{Type: tea.KeyDown})
	c, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, c.Done(), test.ShouldBeTrue)

	msg, ok := cmd().(ChosenMsg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, msg.OK, test.ShouldBeTrue)
	test.That(t, msg.Port.Path, test.ShouldEqual, "/dev/ttyACM1")

	_, cmd = c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	test.That(t, cmd, test.ShouldBeNil)
}

func TestChooserCancel(t *testing.T) {
	c := NewChooser(choosePorts())
	c, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEsc})
	test.That(t, c.Done(), test.ShouldBeTrue)
	msg := cmd().(ChosenMsg)
	test.That(t, msg.OK, test.ShouldBeFalse)
}

func TestChooserEmpty(t *testing.T) {
	c := NewChooser(nil)
	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	test.That(t, cmd, test.ShouldBeNil)
	test.That(t, c.View(), test.ShouldContainSubstring, "No serial devices")
}
