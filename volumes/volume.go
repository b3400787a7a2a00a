// Package volumes drives the create-and-publish workflow for replicated
// block volumes: one replica per pool locator, assembled under a nexus
// on the designated host and published as a connectable device URI.
package volumes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/michaelbeaumont/mayastor/api"
)

//DefaultFanOut bounds how many replica creations run in flight at once
const DefaultFanOut = 4

//Volume describes a volume provisioning request. ID is the string form
//of a UUID shared by the replicas and the nexus; when empty one is
//generated. Pools lists pool://host/pool-name locators, one replica is
//created per entry in order. NexusHost is a nvmt://host locator naming
//the node hosting the nexus. Size is the requested capacity in bytes.
type Volume struct {
	ID        string
	Pools     []string
	NexusHost string
	Size      uint64
	Thin      bool
}

//Creator orchestrates volume creation against a pool of storage agents.
//The agent pool is injected so transport and connection reuse stay out
//of the orchestration logic.
type Creator struct {
	Agents api.AgentPool
	//FanOut limits concurrent replica creations, DefaultFanOut if zero
	FanOut int
	//Rollback enables best-effort destruction of already created
	//replicas when a later stage fails
	Rollback bool
	//RollbackEvery and RollbackFor tune the rollback destroy retry,
	//defaults apply when zero
	RollbackEvery time.Duration
	RollbackFor   time.Duration
}

//replicaTarget is one parsed pool locator
type replicaTarget struct {
	host string
	pool string
}

//target is a fully validated provisioning request, produced before any
//remote call is made
type target struct {
	id        string
	size      uint64
	thin      bool
	replicas  []replicaTarget
	nexusHost string
}

//resolve validates the request and parses every locator up front so no
//agent-side state is touched on malformed input
func resolve(vol Volume) (*target, error) {
	if vol.Size == 0 {
		return nil, api.NewError(api.ErrInvalidArgument, nil, "volume size must be positive")
	}
	if len(vol.Pools) == 0 {
		return nil, api.NewError(api.ErrInvalidArgument, nil, "volume needs at least one pool")
	}
	id := vol.ID
	if id == "" {
		u, err := uuid.NewRandom()
		if err != nil {
			return nil, errors.Wrap(err, "generating volume id")
		}
		id = u.String()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, api.NewError(api.ErrInvalidArgument, err, "volume id %q is not a UUID", id)
	}

	t := &target{id: id, size: vol.Size, thin: vol.Thin}
	for _, locator := range vol.Pools {
		host, pool, err := api.ParsePoolLocator(locator)
		if err != nil {
			return nil, err
		}
		t.replicas = append(t.replicas, replicaTarget{host: host, pool: pool})
	}
	host, err := api.ParseNexusLocator(vol.NexusHost)
	if err != nil {
		return nil, err
	}
	t.nexusHost = host
	return t, nil
}

//Create builds the volume and returns the published device URI. Either a
//fully published device URI is returned or an error naming the failing
//stage; there is no partial-success return. With Rollback set, replicas
//already created when a later stage fails are destroyed best-effort and
//any leak is reported as ErrPartialFailure.
func (c *Creator) Create(ctx context.Context, vol Volume) (string, error) {
	t, err := resolve(vol)
	if err != nil {
		return "", err
	}

	created, err := c.createReplicas(ctx, t)
	if err != nil {
		return "", c.abort(ctx, t, created, err)
	}

	children := make([]string, len(created))
	for i, r := range created {
		children[i] = r.URI
	}

	agent := c.Agents.Agent(t.nexusHost)
	if _, err := agent.CreateNexus(ctx, t.id, t.size, children); err != nil {
		err = errors.Wrapf(err, "volume %s: creating nexus on %s", t.id, t.nexusHost)
		return "", c.abort(ctx, t, created, err)
	}

	deviceURI, err := agent.PublishNexus(ctx, t.id)
	if err != nil {
		err = errors.Wrapf(err, "volume %s: publishing nexus on %s", t.id, t.nexusHost)
		if derr := agent.DestroyNexus(ctx, t.id); derr != nil && !api.IsNotFound(derr) {
			err = api.NewError(api.ErrPartialFailure, err,
				"volume %s: nexus left behind on %s", t.id, t.nexusHost)
		}
		return "", c.abort(ctx, t, created, err)
	}
	return deviceURI, nil
}

//createReplicas fans out replica creation across pools, bounded by
//FanOut, and waits for all of them. The result keeps input-pool order
//regardless of completion order. The first failure cancels the
//remaining in-flight creations; replicas that did complete are returned
//alongside the error so the caller can clean them up.
func (c *Creator) createReplicas(ctx context.Context, t *target) ([]*api.Replica, error) {
	fanOut := c.FanOut
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}

	results := make([]*api.Replica, len(t.replicas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i := range t.replicas {
		i := i
		rt := t.replicas[i]
		g.Go(func() error {
			replica, err := c.Agents.Agent(rt.host).CreateReplica(gctx, rt.pool, t.id, t.size, t.thin)
			if err != nil {
				return errors.Wrapf(err, "volume %s: creating replica on %s/%s", t.id, rt.host, rt.pool)
			}
			results[i] = replica
			return nil
		})
	}
	err := g.Wait()

	created := make([]*api.Replica, 0, len(results))
	for _, r := range results {
		if r != nil {
			created = append(created, r)
		}
	}
	if err != nil {
		return created, err
	}
	if len(created) != len(t.replicas) {
		// cannot happen unless an agent returned success without a replica
		return created, api.NewError(api.ErrConsistency, nil,
			"volume %s: %d replicas for %d pools", t.id, len(created), len(t.replicas))
	}
	return created, nil
}
