// Package irq provides a scoped critical section over an interrupt mask.
//
// State shared between mainline code and an interrupt handler is accessed
// from mainline only between [Enter] and [Guard.Exit]:
//
//	g := irq.Enter(masker)
//	defer g.Exit()
//	// ... touch shared state ...
//
// Exit restores the mask that was in effect at Enter, so guards nest and
// are safe to use from code that may already run with interrupts masked.
package irq

import "sync"

// State is the saved interrupt-enable state returned by Masker.Disable.
type State uintptr

// Masker disables and restores the interrupt sources guarding a piece of
// shared state.
type Masker interface {
	// Disable masks the interrupt and returns the previous state.
	Disable() State

	// Restore reinstates a state returned by Disable.
	Restore(State)
}

// Guard is an entered critical section.
type Guard struct {
	m      Masker
	state  State
	active bool
}

// Enter masks interrupts through m and returns the guard that restores
// them. A nil m yields a no-op guard.
func Enter(m Masker) Guard {
	if m == nil {
		return Guard{}
	}
	return Guard{m: m, state: m.Disable(), active: true}
}

// Exit restores the saved state. Calling Exit more than once is a no-op.
func (g *Guard) Exit() {
	if !g.active {
		return
	}
	g.active = false
	g.m.Restore(g.state)
}

// Do runs fn inside a critical section. The mask is restored even if fn
// panics.
func Do(m Masker, fn func()) {
	g := Enter(m)
	defer g.Exit()
	fn()
}

// Nop is a Masker for single-context use, where no interrupt can preempt
// the caller.
type Nop struct{}

// Disable implements Masker.
func (Nop) Disable() State { return 0 }

// Restore implements Masker.
func (Nop) Restore(State) {}

// FromLocker adapts a sync.Locker into a Masker. It models a second
// interrupt context with a goroutine; the lock does not nest.
func FromLocker(l sync.Locker) Masker {
	return lockMasker{l}
}

type lockMasker struct {
	l sync.Locker
}

func (m lockMasker) Disable() State {
	m.l.Lock()
	return 0
}

func (m lockMasker) Restore(State) {
	m.l.Unlock()
}
