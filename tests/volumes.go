package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/SebastienDorgan/talgo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/michaelbeaumont/mayastor/api"
	"github.com/michaelbeaumont/mayastor/volumes"
)

//TestUUID is the volume identity used by the suite
const TestUUID = "10e1f6e4-c4b3-4d1c-8bfd-5aeb6bc3c678"

const testSize = uint64(1073741824)

//VolumeCreatorTestSuite exercises the volume creation workflow against
//the in-memory agent pool
type VolumeCreatorTestSuite struct {
	suite.Suite
	Agents  *FakeAgentPool
	Creator *volumes.Creator
}

//SetupTest resets the agent pool and the creator before every test
func (s *VolumeCreatorTestSuite) SetupTest() {
	s.Agents = NewFakeAgentPool()
	s.Creator = &volumes.Creator{
		Agents:        s.Agents,
		Rollback:      true,
		RollbackEvery: time.Millisecond,
		RollbackFor:   10 * time.Millisecond,
	}
}

func (s *VolumeCreatorTestSuite) vol(pools ...string) volumes.Volume {
	if len(pools) == 0 {
		pools = []string{"pool://h1/p1", "pool://h2/p2"}
	}
	return volumes.Volume{
		ID:        TestUUID,
		Pools:     pools,
		NexusHost: "nvmt://h3",
		Size:      testSize,
	}
}

func (s *VolumeCreatorTestSuite) callsFor(op string) []Call {
	calls := s.Agents.Calls()
	indexes := talgo.FindAll(len(calls), func(i int) bool {
		return calls[i].Op == op
	})
	selected := make([]Call, 0, len(indexes))
	for _, i := range indexes {
		selected = append(selected, calls[i])
	}
	return selected
}

func replicaURI(host string, id string) string {
	return fmt.Sprintf("nvmf://%s:8420/nqn.2019-05.io.openebs:%s", host, id)
}

func (s *VolumeCreatorTestSuite) TestCreateEndToEnd() {
	s.Creator.FanOut = 1

	deviceURI, err := s.Creator.Create(context.Background(), s.vol())
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), fmt.Sprintf("nvmf://h3:4420/nqn.2019-05.io.openebs:nexus-%s", TestUUID), deviceURI)

	replicas := s.callsFor(OpCreateReplica)
	if assert.Len(s.T(), replicas, 2) {
		assert.Equal(s.T(), Call{Host: "h1", Op: OpCreateReplica, Pool: "p1", UUID: TestUUID, Size: testSize}, replicas[0])
		assert.Equal(s.T(), Call{Host: "h2", Op: OpCreateReplica, Pool: "p2", UUID: TestUUID, Size: testSize}, replicas[1])
	}

	nexuses := s.callsFor(OpCreateNexus)
	if assert.Len(s.T(), nexuses, 1) {
		assert.Equal(s.T(), "h3", nexuses[0].Host)
		assert.Equal(s.T(), TestUUID, nexuses[0].UUID)
		assert.Equal(s.T(), testSize, nexuses[0].Size)
		assert.Equal(s.T(), []string{replicaURI("h1", TestUUID), replicaURI("h2", TestUUID)}, nexuses[0].Children)
	}

	publishes := s.callsFor(OpPublishNexus)
	if assert.Len(s.T(), publishes, 1) {
		assert.Equal(s.T(), "h3", publishes[0].Host)
		assert.Equal(s.T(), TestUUID, publishes[0].UUID)
	}
}

func (s *VolumeCreatorTestSuite) TestOneReplicaPerPoolInOrder() {
	pools := []string{"pool://h1/p1", "pool://h2/p2", "pool://h4/p4", "pool://h5/p5"}
	_, err := s.Creator.Create(context.Background(), s.vol(pools...))
	assert.NoError(s.T(), err)

	replicas := s.callsFor(OpCreateReplica)
	assert.Len(s.T(), replicas, len(pools))
	hosts := make(map[string]int)
	for _, c := range replicas {
		hosts[c.Host]++
	}
	for _, h := range []string{"h1", "h2", "h4", "h5"} {
		assert.Equal(s.T(), 1, hosts[h])
	}

	// children keep input-pool order regardless of completion order
	nexuses := s.callsFor(OpCreateNexus)
	if assert.Len(s.T(), nexuses, 1) {
		expected := []string{
			replicaURI("h1", TestUUID),
			replicaURI("h2", TestUUID),
			replicaURI("h4", TestUUID),
			replicaURI("h5", TestUUID),
		}
		assert.Equal(s.T(), expected, nexuses[0].Children)
	}
}

func (s *VolumeCreatorTestSuite) TestNexusSchemeMismatch() {
	vol := s.vol()
	vol.NexusHost = "pool://h3/oops"

	_, err := s.Creator.Create(context.Background(), vol)
	assert.Error(s.T(), err)
	assert.True(s.T(), api.IsValidation(err))
	assert.Equal(s.T(), api.ErrSchemeMismatch, api.KindOf(err))
	assert.Empty(s.T(), s.Agents.Calls())
}

func (s *VolumeCreatorTestSuite) TestPoolSchemeMismatch() {
	_, err := s.Creator.Create(context.Background(), s.vol("pool://h1/p1", "nvmt://h2"))
	assert.Error(s.T(), err)
	assert.True(s.T(), api.IsValidation(err))
	assert.Empty(s.T(), s.Agents.Calls())
}

func (s *VolumeCreatorTestSuite) TestInvalidInput() {
	vol := s.vol()
	vol.Size = 0
	_, err := s.Creator.Create(context.Background(), vol)
	assert.Equal(s.T(), api.ErrInvalidArgument, api.KindOf(err))

	vol = s.vol()
	vol.Pools = nil
	_, err = s.Creator.Create(context.Background(), vol)
	assert.Equal(s.T(), api.ErrInvalidArgument, api.KindOf(err))

	vol = s.vol()
	vol.ID = "v1"
	_, err = s.Creator.Create(context.Background(), vol)
	assert.Equal(s.T(), api.ErrInvalidArgument, api.KindOf(err))

	assert.Empty(s.T(), s.Agents.Calls())
}

func (s *VolumeCreatorTestSuite) TestGeneratedIdentity() {
	vol := s.vol()
	vol.ID = ""

	_, err := s.Creator.Create(context.Background(), vol)
	assert.NoError(s.T(), err)

	nexuses := s.callsFor(OpCreateNexus)
	if assert.Len(s.T(), nexuses, 1) {
		_, err := uuid.Parse(nexuses[0].UUID)
		assert.NoError(s.T(), err)
	}
}

func (s *VolumeCreatorTestSuite) TestReplicaFailureSkipsNexus() {
	s.Creator.FanOut = 1
	s.Agents.FailCreateReplica["h2/p2"] = api.NewError(api.ErrInsufficientCapacity, nil, "pool p2 out of space")

	_, err := s.Creator.Create(context.Background(), s.vol())
	assert.Error(s.T(), err)
	assert.Equal(s.T(), api.ErrInsufficientCapacity, api.KindOf(err))
	assert.Contains(s.T(), err.Error(), "h2/p2")

	assert.Empty(s.T(), s.callsFor(OpCreateNexus))
	assert.Empty(s.T(), s.callsFor(OpPublishNexus))

	// rollback destroyed the replica that did get created
	assert.False(s.T(), s.Agents.Replica("h1", "p1", TestUUID))
	assert.NotEmpty(s.T(), s.callsFor(OpDestroyReplica))
}

func (s *VolumeCreatorTestSuite) TestPublishFailureRollsBack() {
	s.Agents.FailPublishNexus["h3"] = api.NewError(api.ErrUnknown, nil, "subsystem busy")

	_, err := s.Creator.Create(context.Background(), s.vol())
	assert.Error(s.T(), err)

	assert.Len(s.T(), s.callsFor(OpDestroyNexus), 1)
	assert.False(s.T(), s.Agents.Replica("h1", "p1", TestUUID))
	assert.False(s.T(), s.Agents.Replica("h2", "p2", TestUUID))
}

func (s *VolumeCreatorTestSuite) TestLeakedNexusStillRollsBackReplicas() {
	s.Agents.FailPublishNexus["h3"] = api.NewError(api.ErrUnknown, nil, "subsystem busy")
	s.Agents.FailDestroyNexus["h3"] = api.NewError(api.ErrUnknown, nil, "agent wedged")

	_, err := s.Creator.Create(context.Background(), s.vol())
	assert.Error(s.T(), err)
	assert.Equal(s.T(), api.ErrPartialFailure, api.KindOf(err))
	assert.Contains(s.T(), err.Error(), "nexus left behind on h3")

	// the replicas still get their destroy attempt despite the stuck nexus
	assert.NotEmpty(s.T(), s.callsFor(OpDestroyReplica))
	assert.False(s.T(), s.Agents.Replica("h1", "p1", TestUUID))
	assert.False(s.T(), s.Agents.Replica("h2", "p2", TestUUID))
}

func (s *VolumeCreatorTestSuite) TestRollbackLeakReported() {
	s.Agents.FailCreateNexus["h3"] = api.NewError(api.ErrUnknown, nil, "nexus subsystem failed")
	s.Agents.FailDestroyReplica["h1/p1"] = api.NewError(api.ErrUnknown, nil, "agent busy")

	_, err := s.Creator.Create(context.Background(), s.vol())
	assert.Error(s.T(), err)
	assert.Equal(s.T(), api.ErrPartialFailure, api.KindOf(err))
	assert.Contains(s.T(), err.Error(), "h1/p1")
}

func (s *VolumeCreatorTestSuite) TestDoubleCreateFailsDeterministically() {
	first, err := s.Creator.Create(context.Background(), s.vol())
	assert.NoError(s.T(), err)

	_, err = s.Creator.Create(context.Background(), s.vol())
	assert.Error(s.T(), err)
	assert.True(s.T(), api.IsAlreadyExists(err))

	// the existing volume survives the failed duplicate attempt
	assert.True(s.T(), s.Agents.Replica("h1", "p1", TestUUID))
	assert.True(s.T(), s.Agents.Replica("h2", "p2", TestUUID))
	again, err := s.Agents.Agent("h3").PublishNexus(context.Background(), TestUUID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), first, again)
}

func (s *VolumeCreatorTestSuite) TestPublishIsIdempotent() {
	deviceURI, err := s.Creator.Create(context.Background(), s.vol())
	assert.NoError(s.T(), err)

	again, err := s.Agents.Agent("h3").PublishNexus(context.Background(), TestUUID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), deviceURI, again)
}

func (s *VolumeCreatorTestSuite) TestDestroy() {
	_, err := s.Creator.Create(context.Background(), s.vol())
	assert.NoError(s.T(), err)

	err = s.Creator.Destroy(context.Background(), s.vol())
	assert.NoError(s.T(), err)
	assert.False(s.T(), s.Agents.Replica("h1", "p1", TestUUID))
	assert.False(s.T(), s.Agents.Replica("h2", "p2", TestUUID))

	// destroying again tolerates everything being gone
	err = s.Creator.Destroy(context.Background(), s.vol())
	assert.NoError(s.T(), err)
}
