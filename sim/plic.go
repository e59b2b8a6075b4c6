package sim

import (
	"sync"
	"sync/atomic"

	"hartclock/core"
)

// PLIC records interrupt source priorities
type PLIC struct {
	mu         sync.Mutex
	priorities map[core.IRQ]uint8
}

func (p *PLIC) SetPriority(irq core.IRQ, priority uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.priorities == nil {
		p.priorities = make(map[core.IRQ]uint8)
	}
	p.priorities[irq] = priority
}

// Priority returns the configured priority of irq
func (p *PLIC) Priority(irq core.IRQ) (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	priority, ok := p.priorities[irq]
	return priority, ok
}

// Harts reports a settable current hart
type Harts struct {
	current atomic.Uint32
}

func (h *Harts) HartID() core.Hart {
	return core.Hart(h.current.Load())
}

// Set selects the hart subsequent driver calls run on
func (h *Harts) Set(hart core.Hart) {
	h.current.Store(uint32(hart))
}

var (
	_ core.InterruptController = (*PLIC)(nil)
	_ core.HartSource          = (*Harts)(nil)
)
