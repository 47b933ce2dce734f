package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("volume guard is open")
	ErrTooManyRequests = errors.New("volume guard is probing")
)

// State represents the guard state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the guard
type Settings struct {
	// Threshold is the number of consecutive failures that trips the guard
	Threshold uint32
	// Cooldown is how long the guard stays open before one trial request is let through
	Cooldown time.Duration
	// IsFailure decides which errors count against the volume. Other
	// errors count as successes.
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Guard stops calls to a volume after it reports failures, then lets a
// single trial request through once the cooldown has passed.
type Guard struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures uint32
	openedAt time.Time
	probing  bool
	trips    uint64
}

// NewGuard creates a guard with the given settings
func NewGuard(name string, settings Settings) *Guard {
	if settings.Threshold == 0 {
		settings.Threshold = 1
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}

	return &Guard{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
}

// Name returns the name of the guard
func (g *Guard) Name() string {
	return g.name
}

// State returns the current state. A nil guard is always closed.
func (g *Guard) State() State {
	if g == nil {
		return StateClosed
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentState(g.now())
}

// Trips returns how many times the guard has opened
func (g *Guard) Trips() uint64 {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trips
}

// Do runs fn unless the guard is open. A nil guard always runs fn.
func (g *Guard) Do(fn func() error) error {
	if g == nil {
		return fn()
	}
	if err := g.before(); err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			g.after(true)
			panic(e)
		}
	}()

	err := fn()
	g.after(g.settings.IsFailure(err))
	return err
}

// Reset closes the guard, e.g. after the volume was reinitialized
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probing = false
	g.setState(StateClosed)
}

func (g *Guard) before() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.currentState(g.now()) {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if g.probing {
			return ErrTooManyRequests
		}
		g.probing = true
	}
	return nil
}

func (g *Guard) after(failed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.currentState(g.now())
	if state == StateHalfOpen {
		g.probing = false
	}

	if !failed {
		g.failures = 0
		g.setState(StateClosed)
		return
	}

	g.failures++
	if state == StateHalfOpen || g.failures >= g.settings.Threshold {
		g.openedAt = g.now()
		g.setState(StateOpen)
	}
}

func (g *Guard) currentState(now time.Time) State {
	if g.state == StateOpen && now.Sub(g.openedAt) >= g.settings.Cooldown {
		g.setState(StateHalfOpen)
	}
	return g.state
}

func (g *Guard) setState(state State) {
	if g.state == state {
		return
	}

	prev := g.state
	g.state = state
	switch state {
	case StateClosed:
		g.failures = 0
	case StateOpen:
		g.trips++
	}

	if g.settings.OnStateChange != nil {
		g.settings.OnStateChange(g.name, prev, state)
	}
}
