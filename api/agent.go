package api

import "context"

//Replica is a single storage-agent-owned copy of volume data carved out
//of a pool. The agent on Host owns its storage; the orchestrator only
//holds the connect URI.
type Replica struct {
	UUID string
	Host string
	Pool string
	Size uint64
	Thin bool
	URI  string
}

//Nexus is the front-end aggregate device presenting one or more replicas
//as a single replicated block volume. DeviceURI is empty until the nexus
//is published.
type Nexus struct {
	UUID      string
	Size      uint64
	Children  []string
	DeviceURI string
}

//StorageAgent defines operations offered by the storage agent running on
//one addressable node. Every call mutates agent-resident state on that
//node and must be given a context carrying the call deadline.
type StorageAgent interface {
	CreateReplica(ctx context.Context, pool string, uuid string, size uint64, thin bool) (*Replica, error)
	DestroyReplica(ctx context.Context, pool string, uuid string) error
	CreateNexus(ctx context.Context, uuid string, size uint64, children []string) (*Nexus, error)
	DestroyNexus(ctx context.Context, uuid string) error
	PublishNexus(ctx context.Context, uuid string) (string, error)
}

//AgentPool hands out a StorageAgent per host. Implementations cache one
//client per host so repeated calls within a request reuse the connection.
type AgentPool interface {
	Agent(host string) StorageAgent
}
