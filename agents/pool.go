package agents

import (
	"sync"
	"time"

	"github.com/michaelbeaumont/mayastor/api"
)

//Pool hands out one Client per host and reuses it across calls. It is
//safe for use by concurrent volume operations; clients hold no
//per-request state.
type Pool struct {
	port    int
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*Client
}

//NewPool creates an agent pool. Zero port or timeout select defaults.
func NewPool(port int, timeout time.Duration) *Pool {
	return &Pool{
		port:    port,
		timeout: timeout,
		clients: make(map[string]*Client),
	}
}

//Agent returns the cached client for host, creating it on first use
func (p *Pool) Agent(host string) api.StorageAgent {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[host]
	if !ok {
		c = NewClient(host, p.port, p.timeout)
		p.clients[host] = c
	}
	return c
}
