package boardlink

import "time"

// BaudRate is the fixed link speed. Boards running a USB CDC REPL ignore the value, but
// UART bridges do not, so it is never negotiated.
const BaudRate = 115200

// WriteMode represents the write synchronization mode
type WriteMode int

const (
	WriteModeBuffered WriteMode = iota // Default: kernel buffers writes
	WriteModeSynced                    // O_SYNC: writes block until hardware transmission
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// Config holds the configuration for a serial port
type Config struct {
	DataBits int
	StopBits int
	Parity   Parity

	// ReadTimeout bounds a single Read call. ReadContext ignores it and polls in
	// PollInterval slices until data, hangup or cancellation.
	ReadTimeout  time.Duration
	PollInterval time.Duration
	WriteMode    WriteMode

	InitialDTR *bool
	InitialRTS *bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns 8N1 with DTR asserted on open
func DefaultConfig() Config {
	dtr := true
	return Config{
		DataBits:     8,
		StopBits:     1,
		Parity:       ParityNone,
		ReadTimeout:  2500 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
		WriteMode:    WriteModeBuffered,
		InitialDTR:   &dtr,
	}
}

// NewConfig applies opts on top of DefaultConfig
func NewConfig(opts ...Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityEven {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout sets the Read timeout. Must be a multiple of 100ms up to 25.5s
// so that it maps onto the tty's decisecond timer.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > 25500*time.Millisecond || timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithPollInterval sets how often blocked reads and writes re-check for
// cancellation and port closure.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval < time.Millisecond {
			return ErrInvalidConfig
		}
		c.PollInterval = interval
		return nil
	}
}

// WithWriteMode sets the write synchronization mode
func WithWriteMode(mode WriteMode) Option {
	return func(c *Config) error {
		c.WriteMode = mode
		return nil
	}
}

// WithSyncWrite enables synchronous writes (O_SYNC) for guaranteed transmission
func WithSyncWrite() Option {
	return WithWriteMode(WriteModeSynced)
}

// WithInitialDTR sets the DTR line right after open
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// WithInitialRTS sets the RTS line right after open
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}
