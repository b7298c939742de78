package pipeline

import "sync/atomic"

// TriggerGate is a one-shot latch. Acquire returns true exactly once.
type TriggerGate struct {
	fired atomic.Bool
}

// Acquire fires the gate and reports whether this call was the one that did.
func (g *TriggerGate) Acquire() bool {
	return g.fired.CompareAndSwap(false, true)
}

// Fired reports whether the gate has been acquired.
func (g *TriggerGate) Fired() bool {
	return g.fired.Load()
}
