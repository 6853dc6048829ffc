package provider

import (
	"sync"
	"time"
)

// pendingFlows holds PKCE verifiers between Prompt and the callback. Each
// state can be taken once.
type pendingFlows struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flows map[string]pendingFlow
}

func newPendingFlows(ttl time.Duration) *pendingFlows {
	return &pendingFlows{ttl: ttl, now: time.Now, flows: map[string]pendingFlow{}}
}

func (p *pendingFlows) put(state string, flow pendingFlow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.pruneLocked(now)
	flow.created = now
	p.flows[state] = flow
}

func (p *pendingFlows) take(state string) (pendingFlow, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	flow, ok := p.flows[state]
	if !ok {
		return pendingFlow{}, false
	}
	delete(p.flows, state)
	if p.now().Sub(flow.created) > p.ttl {
		return pendingFlow{}, false
	}
	return flow, true
}

func (p *pendingFlows) pruneLocked(now time.Time) {
	for state, flow := range p.flows {
		if now.Sub(flow.created) > p.ttl {
			delete(p.flows, state)
		}
	}
}

func (p *pendingFlows) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.flows)
}
