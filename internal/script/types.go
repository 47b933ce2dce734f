package script

import (
	"errors"
	"time"
)

var (
	ErrTimeout  = errors.New("execution timeout exceeded")
	ErrClosed   = errors.New("runtime is closed")
	ErrCanceled = errors.New("execution cancelled")
)

// Config defines runtime configuration
type Config struct {
	Timeout       time.Duration // Execution timeout
	EnableConsole bool          // Allow console.log/warn/error/info
	MaxCallStack  int           // Call stack depth limit, 0 keeps the goja default
}

// Result holds execution result
type Result struct {
	ID       string        `json:"id"`
	Value    interface{}   `json:"value"`
	Console  []LogEntry    `json:"console"`
	Duration time.Duration `json:"duration"`
	Error    error         `json:"-"`
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
		MaxCallStack:  1024,
	}
}
