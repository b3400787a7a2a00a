package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/michaelbeaumont/mayastor/api"
	"github.com/michaelbeaumont/mayastor/rest"
	"github.com/michaelbeaumont/mayastor/tests"
	"github.com/michaelbeaumont/mayastor/volumes"
)

type VolumeAPITestSuite struct {
	suite.Suite
	Agents *tests.FakeAgentPool
	srv    *httptest.Server
}

func (s *VolumeAPITestSuite) SetupTest() {
	s.Agents = tests.NewFakeAgentPool()
	creator := &volumes.Creator{
		Agents:        s.Agents,
		Rollback:      true,
		RollbackEvery: time.Millisecond,
		RollbackFor:   10 * time.Millisecond,
	}
	server := rest.New(":0")
	server.SetRoutes((&rest.VolumeCommand{Creator: creator}).Routes())
	s.srv = httptest.NewServer(server.Routes)
}

func (s *VolumeAPITestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *VolumeAPITestSuite) create(req rest.VolumeCreateRequest) (*http.Response, rest.VolumeCreateResponse) {
	buf, err := json.Marshal(req)
	require.NoError(s.T(), err)
	resp, err := http.Post(s.srv.URL+"/v0/volumes", "application/json", bytes.NewReader(buf))
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	var out rest.VolumeCreateResponse
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *VolumeAPITestSuite) TestVolumeCreate() {
	resp, out := s.create(rest.VolumeCreateRequest{
		UUID:      tests.TestUUID,
		Pools:     []string{"pool://h1/p1", "pool://h2/p2"},
		NexusHost: "nvmt://h3",
		Size:      1073741824,
	})
	assert.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	assert.Equal(s.T(), tests.TestUUID, out.UUID)
	assert.Equal(s.T(), "nvmf://h3:4420/nqn.2019-05.io.openebs:nexus-"+tests.TestUUID, out.DeviceURI)
}

func (s *VolumeAPITestSuite) TestVolumeCreateGeneratesIdentity() {
	resp, out := s.create(rest.VolumeCreateRequest{
		Pools:     []string{"pool://h1/p1"},
		NexusHost: "nvmt://h3",
		Size:      1024,
	})
	assert.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	_, err := uuid.Parse(out.UUID)
	assert.NoError(s.T(), err)
	assert.NotEmpty(s.T(), out.DeviceURI)
}

func (s *VolumeAPITestSuite) TestVolumeCreateSchemeMismatch() {
	resp, _ := s.create(rest.VolumeCreateRequest{
		UUID:      tests.TestUUID,
		Pools:     []string{"pool://h1/p1"},
		NexusHost: "pool://h3/p3",
		Size:      1024,
	})
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Empty(s.T(), s.Agents.Calls())
}

func (s *VolumeAPITestSuite) TestVolumeCreateBadJSON() {
	resp, err := http.Post(s.srv.URL+"/v0/volumes", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(s.T(), err)
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
}

func (s *VolumeAPITestSuite) TestVolumeCreateCapacityError() {
	s.Agents.FailCreateReplica["h1/p1"] = api.NewError(api.ErrInsufficientCapacity, nil, "pool p1 out of space")

	resp, _ := s.create(rest.VolumeCreateRequest{
		UUID:      tests.TestUUID,
		Pools:     []string{"pool://h1/p1"},
		NexusHost: "nvmt://h3",
		Size:      1024,
	})
	assert.Equal(s.T(), http.StatusInsufficientStorage, resp.StatusCode)
}

func (s *VolumeAPITestSuite) TestVolumeCreateAgentDown() {
	s.Agents.FailCreateReplica["h1/p1"] = api.NewError(api.ErrAgentUnreachable, nil, "agent h1")

	resp, _ := s.create(rest.VolumeCreateRequest{
		UUID:      tests.TestUUID,
		Pools:     []string{"pool://h1/p1"},
		NexusHost: "nvmt://h3",
		Size:      1024,
	})
	assert.Equal(s.T(), http.StatusBadGateway, resp.StatusCode)
}

func (s *VolumeAPITestSuite) TestVolumeDestroy() {
	resp, _ := s.create(rest.VolumeCreateRequest{
		UUID:      tests.TestUUID,
		Pools:     []string{"pool://h1/p1", "pool://h2/p2"},
		NexusHost: "nvmt://h3",
		Size:      1024,
	})
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	buf, err := json.Marshal(rest.VolumeDestroyRequest{
		Pools:     []string{"pool://h1/p1", "pool://h2/p2"},
		NexusHost: "nvmt://h3",
	})
	require.NoError(s.T(), err)
	req, err := http.NewRequest("DELETE", s.srv.URL+"/v0/volumes/"+tests.TestUUID, bytes.NewReader(buf))
	require.NoError(s.T(), err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(s.T(), err)
	resp.Body.Close()

	assert.Equal(s.T(), http.StatusNoContent, resp.StatusCode)
	assert.False(s.T(), s.Agents.Replica("h1", "p1", tests.TestUUID))
	assert.False(s.T(), s.Agents.Replica("h2", "p2", tests.TestUUID))
}

func TestVolumeAPITestSuite(t *testing.T) {
	suite.Run(t, new(VolumeAPITestSuite))
}
