package meterbus

import (
	"sync"
	"time"
)

type FaultLevel int

const (
	FaultLevelOK FaultLevel = iota
	FaultLevelWarning
	FaultLevelError
)

func (l FaultLevel) String() string {
	switch l {
	case FaultLevelOK:
		return "ok"
	case FaultLevelWarning:
		return "warning"
	case FaultLevelError:
		return "error"
	default:
		return "unknown"
	}
}

// FaultState is the externally visible health record of one logical
// component. The poll pass writes it, operational tooling (HTTP status,
// MQTT) reads it, so access is guarded.
type FaultState struct {
	mu      sync.Mutex
	level   FaultLevel
	message string
	since   time.Time
}

func NewFaultState() *FaultState {
	return &FaultState{}
}

func (f *FaultState) DeclareError(err error) {
	f.set(FaultLevelError, err.Error())
}

func (f *FaultState) DeclareWarning(message string) {
	f.set(FaultLevelWarning, message)
}

func (f *FaultState) Clear() {
	f.set(FaultLevelOK, "")
}

func (f *FaultState) set(level FaultLevel, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.level != level || f.message != message {
		f.since = time.Now()
	}
	f.level = level
	f.message = message
}

func (f *FaultState) Level() FaultLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *FaultState) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *FaultState) Since() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.since
}
