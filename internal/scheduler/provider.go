package scheduler

import (
	"sync"
	"time"
)

// Provider lazily builds a single Scheduler and hands the same instance to
// every caller.
type Provider struct {
	once  sync.Once
	loc   *time.Location
	grace time.Duration
	sched *Scheduler
}

func NewProvider(loc *time.Location, grace time.Duration) *Provider {
	return &Provider{loc: loc, grace: grace}
}

// Get returns the shared scheduler, creating it on first use.
func (p *Provider) Get() *Scheduler {
	p.once.Do(func() {
		p.sched = New(p.loc, p.grace)
	})
	return p.sched
}

// EnsureStarted returns the shared scheduler after making sure it runs.
func (p *Provider) EnsureStarted() *Scheduler {
	s := p.Get()
	s.Start()
	return s
}
