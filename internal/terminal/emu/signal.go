package emu

import "pkt.systems/termsnap/internal/terminal"

// Signal names a screen transition the emulator reports to its caller one
// step before applying it.
type Signal int

const (
	SignalNone Signal = iota
	// SignalClearScreen precedes an erase of the whole display (ED 2).
	SignalClearScreen
	SignalEnterAltScreen
	// SignalLeaveAltScreen precedes a swap back to the primary buffer.
	SignalLeaveAltScreen
	// SignalReset precedes a full terminal reset (RIS).
	SignalReset
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalClearScreen:
		return "clear-screen"
	case SignalEnterAltScreen:
		return "enter-alt-screen"
	case SignalLeaveAltScreen:
		return "leave-alt-screen"
	case SignalReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Clears reports whether the transition discards the visible content.
func (s Signal) Clears() bool {
	return s == SignalClearScreen || s == SignalLeaveAltScreen || s == SignalReset
}

// Result describes one Feed step.
type Result struct {
	// Consumed is the number of input bytes applied.
	Consumed int
	// Signal is the transition that stopped the step, if any. The
	// transition has already been applied when Feed returns.
	Signal Signal
	// AltScreen reports whether the alternate buffer was active when the
	// signal was raised.
	AltScreen bool
	// Dirty reports whether the active buffer held written content when
	// the signal was raised.
	Dirty bool
	// Prior is the active buffer as it was just before a clearing
	// transition on a written alternate screen.
	Prior *terminal.Snapshot
}

// PreClear reports whether r marks the point where an alternate-screen
// program is about to wipe what it drew.
func (r Result) PreClear() bool {
	return r.Signal.Clears() && r.AltScreen && r.Dirty
}

func (e *Emulator) raise(sig Signal) {
	if e.pending.Signal != SignalNone {
		return
	}
	e.pending.Signal = sig
	e.pending.AltScreen = e.AltScreen()
	e.pending.Dirty = e.scr.written
	if sig.Clears() && e.pending.AltScreen && e.pending.Dirty {
		snap := e.Snapshot()
		e.pending.Prior = &snap
	}
}
