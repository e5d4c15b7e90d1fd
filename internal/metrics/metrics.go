// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a gotelnet process.
//
// Every method tolerates a nil receiver, so a disabled collector is
// just a nil pointer instead of a flag check at each call site.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a gotelnet process.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsActive  atomic.Int64
	sessionsTotal   atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64
	linesDispatched atomic.Int64
	negotiations    atomic.Int64
	optionsRefused  atomic.Int64
	reconnects      atomic.Int64
	errorsTotal     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New starts a collector; uptime is measured from this moment.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the current number of open sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived adds n to the inbound byte count.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent adds n to the outbound byte count.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn reports bytes read from peers so far.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut reports bytes written to peers so far.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// LineDispatched records one completed command line handed to the shell.
func (c *Collector) LineDispatched() {
	if c == nil {
		return
	}
	c.linesDispatched.Add(1)
}

// LinesDispatched returns the total number of dispatched lines.
func (c *Collector) LinesDispatched() int64 {
	if c == nil {
		return 0
	}
	return c.linesDispatched.Load()
}

// NegotiationHandled records one processed option negotiation command.
func (c *Collector) NegotiationHandled() {
	if c == nil {
		return
	}
	c.negotiations.Add(1)
}

// NegotiationsHandled returns the total negotiation command count.
func (c *Collector) NegotiationsHandled() int64 {
	if c == nil {
		return 0
	}
	return c.negotiations.Load()
}

// OptionRefused records a negotiation answered with WONT or DONT.
func (c *Collector) OptionRefused() {
	if c == nil {
		return
	}
	c.optionsRefused.Add(1)
}

// OptionsRefused returns the total refused option count.
func (c *Collector) OptionsRefused() int64 {
	if c == nil {
		return 0
	}
	return c.optionsRefused.Load()
}

// ── Reconnect metrics ────────────────────────────────────────────────

// Reconnect records a client reconnection attempt.
func (c *Collector) Reconnect() {
	if c == nil {
		return
	}
	c.reconnects.Add(1)
}

// Reconnects returns the total reconnection count.
func (c *Collector) Reconnects() int64 {
	if c == nil {
		return 0
	}
	return c.reconnects.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError counts err and remembers it as the most recent failure.
// A nil err is ignored.
func (c *Collector) RecordError(err error) {
	if c == nil || err == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = err.Error()
	c.mu.Unlock()
}

// ErrorCount reports how many errors have been recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Uptime ───────────────────────────────────────────────────────────

// Uptime returns the time elapsed since the collector was created.
func (c *Collector) Uptime() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.startTime)
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot freezes every counter at one instant.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	LinesDispatched  int64  `json:"lines_dispatched"`
	Negotiations     int64  `json:"negotiations"`
	OptionsRefused   int64  `json:"options_refused"`
	Reconnects       int64  `json:"reconnects"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot collects the current counter values.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:  c.sessionsActive.Load(),
		SessionsTotal:   c.sessionsTotal.Load(),
		BytesIn:         c.bytesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
		LinesDispatched: c.linesDispatched.Load(),
		Negotiations:    c.negotiations.Load(),
		OptionsRefused:  c.optionsRefused.Load(),
		Reconnects:      c.reconnects.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON renders a snapshot as indented JSON.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
