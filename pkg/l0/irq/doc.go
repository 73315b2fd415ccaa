// Package irq models the interrupt system of the tracker.
package irq

// Hardware goroutines (UART receivers, transmit completion, the 1 second timer)
// never touch shared state directly. They raise a Line and the Controller runs
// the line's handler, one handler at a time, the same way a single core only
// ever executes one interrupt service routine.
//
// The Controller supports the global enable/disable primitive used by
// critical sections, and per-line masking. A latched line remembers that it
// fired while disabled or masked and runs its handler once on Enable/Unmask;
// a non-latched line drops the event and counts it.
//
// State shared by handlers and the foreground (flags, interval counters) is
// kept in Flag and Counter cells which always observe the latest write.
