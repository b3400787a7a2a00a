// Package tests provides shared fixtures and reusable test suites for
// the volume orchestrator: an in-memory storage agent pool with call
// recording and failure injection, and a suite exercising the volume
// creation workflow against it.
package tests

import (
	"context"
	"fmt"
	"sync"

	"github.com/michaelbeaumont/mayastor/api"
)

//Call records one operation issued against a fake agent, in the order
//calls arrived across the whole pool
type Call struct {
	Host     string
	Op       string
	Pool     string
	UUID     string
	Size     uint64
	Children []string
}

//Operation names recorded in Call.Op
const (
	OpCreateReplica  = "CreateReplica"
	OpDestroyReplica = "DestroyReplica"
	OpCreateNexus    = "CreateNexus"
	OpDestroyNexus   = "DestroyNexus"
	OpPublishNexus   = "PublishNexus"
)

//FakeAgentPool is an in-memory api.AgentPool. Failures are injected by
//host (nexus operations) or host/pool (replica operations) before the
//operation would mutate state.
type FakeAgentPool struct {
	mu     sync.Mutex
	agents map[string]*FakeAgent
	calls  []Call

	FailCreateReplica  map[string]error
	FailDestroyReplica map[string]error
	FailCreateNexus    map[string]error
	FailDestroyNexus   map[string]error
	FailPublishNexus   map[string]error
}

//NewFakeAgentPool creates an empty fake agent pool
func NewFakeAgentPool() *FakeAgentPool {
	return &FakeAgentPool{
		agents:             make(map[string]*FakeAgent),
		FailCreateReplica:  make(map[string]error),
		FailDestroyReplica: make(map[string]error),
		FailCreateNexus:    make(map[string]error),
		FailDestroyNexus:   make(map[string]error),
		FailPublishNexus:   make(map[string]error),
	}
}

//Agent returns the fake agent for host, creating it on first use
func (p *FakeAgentPool) Agent(host string) api.StorageAgent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agent(host)
}

func (p *FakeAgentPool) agent(host string) *FakeAgent {
	a, ok := p.agents[host]
	if !ok {
		a = &FakeAgent{
			pool:     p,
			host:     host,
			replicas: make(map[string]*api.Replica),
			nexuses:  make(map[string]*fakeNexus),
		}
		p.agents[host] = a
	}
	return a
}

//Calls returns a copy of every recorded call in arrival order
func (p *FakeAgentPool) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := make([]Call, len(p.calls))
	copy(calls, p.calls)
	return calls
}

//Replica reports whether a replica of uuid exists on host/pool
func (p *FakeAgentPool) Replica(host string, pool string, uuid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.agent(host).replicas[replicaKey(pool, uuid)]
	return ok
}

func (p *FakeAgentPool) record(c Call) {
	p.calls = append(p.calls, c)
}

func (p *FakeAgentPool) hasReplicaURI(uri string) bool {
	for _, a := range p.agents {
		for _, r := range a.replicas {
			if r.URI == uri {
				return true
			}
		}
	}
	return false
}

func replicaKey(pool string, uuid string) string {
	return pool + "/" + uuid
}

type fakeNexus struct {
	nexus     api.Nexus
	published bool
	deviceURI string
}

//FakeAgent is the in-memory storage agent for one host
type FakeAgent struct {
	pool     *FakeAgentPool
	host     string
	replicas map[string]*api.Replica
	nexuses  map[string]*fakeNexus
}

//CreateReplica creates an in-memory replica and returns its connect URI
func (a *FakeAgent) CreateReplica(ctx context.Context, pool string, uuid string, size uint64, thin bool) (*api.Replica, error) {
	a.pool.mu.Lock()
	defer a.pool.mu.Unlock()
	a.pool.record(Call{Host: a.host, Op: OpCreateReplica, Pool: pool, UUID: uuid, Size: size})

	if err := a.pool.FailCreateReplica[a.host+"/"+pool]; err != nil {
		return nil, err
	}
	key := replicaKey(pool, uuid)
	if _, ok := a.replicas[key]; ok {
		return nil, api.NewError(api.ErrAlreadyExists, nil, "replica %s exists on %s/%s", uuid, a.host, pool)
	}
	r := &api.Replica{
		UUID: uuid,
		Host: a.host,
		Pool: pool,
		Size: size,
		Thin: thin,
		URI:  fmt.Sprintf("nvmf://%s:8420/nqn.2019-05.io.openebs:%s", a.host, uuid),
	}
	a.replicas[key] = r
	return r, nil
}

//DestroyReplica removes an in-memory replica
func (a *FakeAgent) DestroyReplica(ctx context.Context, pool string, uuid string) error {
	a.pool.mu.Lock()
	defer a.pool.mu.Unlock()
	a.pool.record(Call{Host: a.host, Op: OpDestroyReplica, Pool: pool, UUID: uuid})

	if err := a.pool.FailDestroyReplica[a.host+"/"+pool]; err != nil {
		return err
	}
	key := replicaKey(pool, uuid)
	if _, ok := a.replicas[key]; !ok {
		return api.NewError(api.ErrNotFound, nil, "no replica %s on %s/%s", uuid, a.host, pool)
	}
	delete(a.replicas, key)
	return nil
}

//CreateNexus creates an in-memory nexus over the given children. Every
//child URI must belong to a replica known somewhere in the pool,
//otherwise the child counts as unreachable.
func (a *FakeAgent) CreateNexus(ctx context.Context, uuid string, size uint64, children []string) (*api.Nexus, error) {
	a.pool.mu.Lock()
	defer a.pool.mu.Unlock()
	a.pool.record(Call{Host: a.host, Op: OpCreateNexus, UUID: uuid, Size: size, Children: children})

	if err := a.pool.FailCreateNexus[a.host]; err != nil {
		return nil, err
	}
	if _, ok := a.nexuses[uuid]; ok {
		return nil, api.NewError(api.ErrAlreadyExists, nil, "nexus %s exists on %s", uuid, a.host)
	}
	for _, child := range children {
		if !a.pool.hasReplicaURI(child) {
			return nil, api.NewError(api.ErrChildUnreachable, nil, "child %s of nexus %s unreachable", child, uuid)
		}
	}
	n := &fakeNexus{nexus: api.Nexus{UUID: uuid, Size: size, Children: children}}
	a.nexuses[uuid] = n
	return &n.nexus, nil
}

//DestroyNexus removes an in-memory nexus
func (a *FakeAgent) DestroyNexus(ctx context.Context, uuid string) error {
	a.pool.mu.Lock()
	defer a.pool.mu.Unlock()
	a.pool.record(Call{Host: a.host, Op: OpDestroyNexus, UUID: uuid})

	if err := a.pool.FailDestroyNexus[a.host]; err != nil {
		return err
	}
	if _, ok := a.nexuses[uuid]; !ok {
		return api.NewError(api.ErrNotFound, nil, "no nexus %s on %s", uuid, a.host)
	}
	delete(a.nexuses, uuid)
	return nil
}

//PublishNexus publishes the nexus and returns its device URI. Publishing
//an already published nexus returns the existing URI.
func (a *FakeAgent) PublishNexus(ctx context.Context, uuid string) (string, error) {
	a.pool.mu.Lock()
	defer a.pool.mu.Unlock()
	a.pool.record(Call{Host: a.host, Op: OpPublishNexus, UUID: uuid})

	if err := a.pool.FailPublishNexus[a.host]; err != nil {
		return "", err
	}
	n, ok := a.nexuses[uuid]
	if !ok {
		return "", api.NewError(api.ErrNotFound, nil, "no nexus %s on %s", uuid, a.host)
	}
	if !n.published {
		n.published = true
		n.deviceURI = fmt.Sprintf("nvmf://%s:4420/nqn.2019-05.io.openebs:nexus-%s", a.host, uuid)
	}
	return n.deviceURI, nil
}
