package volumes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SebastienDorgan/retry"

	"github.com/michaelbeaumont/mayastor/api"
)

const (
	rollbackRetryInterval = 2 * time.Second
	rollbackRetryTimeout  = 30 * time.Second
)

//abort handles a mid-flight failure: with Rollback enabled the replicas
//created so far are destroyed best-effort. The original error is always
//returned; if cleanup itself leaks replicas it is wrapped as
//ErrPartialFailure naming them.
func (c *Creator) abort(ctx context.Context, t *target, created []*api.Replica, cause error) error {
	if !c.Rollback || len(created) == 0 {
		return cause
	}
	var leaked []string
	for _, r := range created {
		if err := c.wilfulDestroy(ctx, r); err != nil {
			leaked = append(leaked, fmt.Sprintf("%s/%s", r.Host, r.Pool))
		}
	}
	if len(leaked) > 0 {
		return api.NewError(api.ErrPartialFailure, cause,
			"volume %s: rollback leaked replicas on %s", t.id, strings.Join(leaked, ", "))
	}
	return cause
}

func destroyed() retry.Condition {
	return func(v interface{}, e error) bool {
		return e == nil || api.IsNotFound(e)
	}
}

func (c *Creator) destroyAction(ctx context.Context, r *api.Replica) retry.Action {
	return func() (interface{}, error) {
		return nil, c.Agents.Agent(r.Host).DestroyReplica(ctx, r.Pool, r.UUID)
	}
}

//wilfulDestroy keeps trying to destroy a replica for a bounded time; a
//replica that is already gone counts as destroyed
func (c *Creator) wilfulDestroy(ctx context.Context, r *api.Replica) error {
	every := c.RollbackEvery
	if every == 0 {
		every = rollbackRetryInterval
	}
	deadline := c.RollbackFor
	if deadline == 0 {
		deadline = rollbackRetryTimeout
	}
	res := retry.With(c.destroyAction(ctx, r)).
		Every(every).
		For(deadline).
		Until(destroyed()).
		Go()
	if res.LastError != nil && !api.IsNotFound(res.LastError) {
		return res.LastError
	}
	return nil
}
