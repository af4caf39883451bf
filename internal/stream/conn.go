package stream

// Conn is the registry's view of one live client connection.
//
// The transport layer owns the connection object and its lifetime; the
// registry holds only this narrow handle and never outlives it — close
// handling detaches the connection before the transport discards it.
type Conn interface {
	// ID returns a stable identifier for logging.
	ID() string

	// RemoteAddr returns the peer address, for diagnostics only.
	RemoteAddr() string

	// Send queues a text frame for delivery. It never blocks: delivery is
	// fire-and-forget through the connection's buffered write pump. It
	// returns false when the frame was dropped (connection closed or
	// buffer full), which callers log and otherwise ignore — one failed
	// delivery must never abort the rest of a dispatch batch.
	Send(data []byte) bool
}

// Logger is the minimal logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
