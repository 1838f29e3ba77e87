package live

import "time"

// Config holds the connection tuning for a live server.
type Config struct {
	// PingInterval is how often the server pings idle peers.
	PingInterval time.Duration

	// WriteTimeout bounds each socket write.
	WriteTimeout time.Duration

	// ReadTimeout is the idle deadline; pongs extend it.
	ReadTimeout time.Duration

	// MaxFrameSize caps inbound message size in bytes.
	MaxFrameSize int64

	// SendBuffer is the per-peer outbound queue length. A peer whose queue
	// fills gets dropped.
	SendBuffer int

	// AllowedOrigins lists Origin headers accepted on upgrade. Empty means
	// same-origin only; "*" allows everything.
	AllowedOrigins []string
}

// DefaultConfig returns the connection defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
		MaxFrameSize: 1 << 20,
		SendBuffer:   64,
	}
}

// withDefaults fills zero fields so a partially specified Config works.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}
