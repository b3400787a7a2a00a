package volumes

import (
	"context"

	"github.com/pkg/errors"

	"github.com/michaelbeaumont/mayastor/api"
)

//Destroy tears down a volume previously described by vol: the nexus on
//the nexus host first, then every replica. Resources that are already
//gone are skipped, so destroying a half-created or already destroyed
//volume succeeds.
func (c *Creator) Destroy(ctx context.Context, vol Volume) error {
	if vol.ID == "" {
		return api.NewError(api.ErrInvalidArgument, nil, "volume id is required to destroy")
	}
	if vol.Size == 0 {
		// size is irrelevant for teardown but resolve insists on a
		// positive value
		vol.Size = 1
	}
	t, err := resolve(vol)
	if err != nil {
		return err
	}

	agent := c.Agents.Agent(t.nexusHost)
	if err := agent.DestroyNexus(ctx, t.id); err != nil && !api.IsNotFound(err) {
		return errors.Wrapf(err, "volume %s: destroying nexus on %s", t.id, t.nexusHost)
	}

	for _, rt := range t.replicas {
		err := c.Agents.Agent(rt.host).DestroyReplica(ctx, rt.pool, t.id)
		if err != nil && !api.IsNotFound(err) {
			return errors.Wrapf(err, "volume %s: destroying replica on %s/%s", t.id, rt.host, rt.pool)
		}
	}
	return nil
}
