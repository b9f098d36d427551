package server

// Config is the subset of listener-level tuning this server exposes,
// separate from internal/config.Config (persistence/replication options
// resolved from CLI flags) — this Config governs how the accept loop and
// per-connection read loop behave once the server is already up.
//
// There is deliberately no read-timeout knob here: clients may sit idle
// between commands indefinitely.
type Config struct {
	Host           string
	Port           int
	MaxConnections int

	ReadBufferSize int
}

// DefaultConfig returns listener tuning matching a freshly started server
// with no overrides.
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           6379,
		MaxConnections: 10000,
		ReadBufferSize: 4096,
	}
}
