package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/allbin/go-boardlink/internal/tui/styles"
)

// OutputMsg is one chunk of board output, or one line sent to the board.
type OutputMsg struct {
	Time time.Time
	Data []byte
	Text string
	IsTX bool
}

type DisplayMode int

const (
	DisplayText DisplayMode = iota
	DisplayHex
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayHex:
		return "HEX"
	default:
		return "TEXT"
	}
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(mode DisplayMode) *DataFormatter {
	return &DataFormatter{mode: mode}
}

func (df *DataFormatter) SetDisplayMode(mode DisplayMode) {
	df.mode = mode
}

func (df *DataFormatter) Mode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	if df.mode == DisplayHex {
		df.mode = DisplayText
	} else {
		df.mode = DisplayHex
	}
}

// Format renders msgs for the terminal. Text mode joins board output into one stream
// with sent lines on their own rows; hex mode prints one row per chunk.
func (df *DataFormatter) Format(msgs []OutputMsg) string {
	if df.mode == DisplayHex {
		rows := make([]string, len(msgs))
		for i, msg := range msgs {
			rows[i] = df.formatHex(msg)
		}
		return strings.Join(rows, "\n")
	}
	return df.formatText(msgs)
}

func (df *DataFormatter) formatText(msgs []OutputMsg) string {
	var b strings.Builder
	rx := NewStripper()
	lineStart := true
	for _, msg := range msgs {
		if msg.IsTX {
			if !lineStart {
				b.WriteByte('\n')
			}
			b.WriteString(indicator(msg))
			b.WriteByte(' ')
			b.WriteString(CleanText(strings.TrimRight(msg.Text, "\r\n")))
			b.WriteByte('\n')
			lineStart = true
			continue
		}

		text := rx.Write(msg.Text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		lineStart = strings.HasSuffix(text, "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (df *DataFormatter) formatHex(msg OutputMsg) string {
	timestamp := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Render(fmt.Sprintf("[%s]", msg.Time.Format("15:04:05.000")))

	data := msg.Data
	if data == nil {
		data = []byte(msg.Text)
	}
	return fmt.Sprintf("%s %s: % X", timestamp, indicator(msg), data)
}

func indicator(msg OutputMsg) string {
	if !msg.IsTX {
		return lipgloss.NewStyle().
			Foreground(styles.Sky).
			Bold(true).
			Render("↙ RX")
	}

	return lipgloss.NewStyle().
		Foreground(styles.Peach).
		Bold(true).
		Render("↗ TX")
}

// CleanText strips terminal escapes, carriage returns and other control characters,
// keeping newlines and tabs.
func CleanText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 32 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, ansi.Strip(s))
}

// Stripper is CleanText for a stream. Parser state carries over between writes, so
// an escape sequence split across reads is dropped whole.
type Stripper struct {
	parser *ansi.Parser
	out    strings.Builder
}

func NewStripper() *Stripper {
	s := &Stripper{parser: ansi.NewParser()}
	// sequence payloads are discarded
	s.parser.SetDataSize(256)
	s.parser.SetHandler(ansi.Handler{
		Print: func(r rune) { s.out.WriteRune(r) },
		Execute: func(b byte) {
			if b == '\n' || b == '\t' {
				s.out.WriteByte(b)
			}
		},
	})
	return s
}

// Write feeds the next chunk and returns its printable text.
func (s *Stripper) Write(chunk string) string {
	for i := 0; i < len(chunk); i++ {
		s.parser.Advance(chunk[i])
	}
	text := s.out.String()
	s.out.Reset()
	return text
}
