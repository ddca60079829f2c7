package callog

import (
	"sync"

	"github.com/oguzhansen/comiclate/internal/providers"
)

// DefaultCapacity bounds the in-memory history.
const DefaultCapacity = 200

// Log is a bounded in-memory history of translation calls. When the
// capacity is reached the oldest entries are dropped.
type Log struct {
	mu       sync.RWMutex
	calls    []Call
	capacity int
}

// NewLog creates a call log with the given capacity (DefaultCapacity
// when zero or negative).
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Record captures a translation call. Nil results are skipped.
func (l *Log) Record(result *providers.TranslateResult, opts RecordOptions) *Call {
	call := FromTranslateResult(result, opts)
	if call == nil {
		return nil
	}
	l.Add(call)
	return call
}

// Add appends an already-constructed call, evicting the oldest entries
// past capacity.
func (l *Log) Add(call *Call) {
	if call == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, *call)
	if len(l.calls) > l.capacity {
		l.calls = l.calls[len(l.calls)-l.capacity:]
	}
}

// Get retrieves a call by ID. Returns nil when not found.
func (l *Log) Get(id string) *Call {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.calls {
		if l.calls[i].ID == id {
			call := l.calls[i]
			return &call
		}
	}
	return nil
}

// Filter specifies filters for listing calls.
type Filter struct {
	SessionID string
	Provider  string
	Success   *bool
	Limit     int
}

// List retrieves calls matching the filter, newest first.
func (l *Log) List(filter Filter) []Call {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Call, 0, len(l.calls))
	for i := len(l.calls) - 1; i >= 0; i-- {
		c := l.calls[i]
		if filter.SessionID != "" && c.SessionID != filter.SessionID {
			continue
		}
		if filter.Provider != "" && c.Provider != filter.Provider {
			continue
		}
		if filter.Success != nil && c.Success != *filter.Success {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Len reports the number of retained calls.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.calls)
}
