package agents_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelbeaumont/mayastor/agents"
	"github.com/michaelbeaumont/mayastor/api"
)

const testUUID = "10e1f6e4-c4b3-4d1c-8bfd-5aeb6bc3c678"

func newTestClient(t *testing.T, handler http.Handler) (*agents.Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return agents.NewClient(u.Hostname(), port, time.Second), srv
}

func respond(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func TestCreateReplica(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody struct {
		Size uint64 `json:"size"`
		Thin bool   `json:"thin"`
	}
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(w, http.StatusCreated, map[string]string{"uri": "nvmf://h1:8420/nqn.2019-05.io.openebs:" + testUUID})
	}))
	defer srv.Close()

	replica, err := client.CreateReplica(context.Background(), "p1", testUUID, 1073741824, true)
	require.NoError(t, err)
	assert.Equal(t, "PUT", gotMethod)
	assert.Equal(t, "/v0/pools/p1/replicas/"+testUUID, gotPath)
	assert.Equal(t, uint64(1073741824), gotBody.Size)
	assert.True(t, gotBody.Thin)
	assert.Equal(t, "nvmf://h1:8420/nqn.2019-05.io.openebs:"+testUUID, replica.URI)
	assert.Equal(t, "p1", replica.Pool)
}

func TestCreateReplicaEscapesPath(t *testing.T) {
	var gotPath string
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		respond(w, http.StatusCreated, map[string]string{"uri": "nvmf://h1:8420/a"})
	}))
	defer srv.Close()

	_, err := client.CreateReplica(context.Background(), "tier 1/fast", testUUID, 1024, false)
	require.NoError(t, err)
	assert.Equal(t, "/v0/pools/tier%201%2Ffast/replicas/"+testUUID, gotPath)
}

func TestCreateReplicaErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   api.ErrorKind
	}{
		{http.StatusConflict, api.ErrAlreadyExists},
		{http.StatusInsufficientStorage, api.ErrInsufficientCapacity},
		{http.StatusNotFound, api.ErrNotFound},
		{http.StatusBadRequest, api.ErrInvalidArgument},
	}
	for _, c := range cases {
		status := c.status
		client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, status, map[string]string{"error": "agent said no"})
		}))
		_, err := client.CreateReplica(context.Background(), "p1", testUUID, 1024, false)
		srv.Close()
		require.Error(t, err)
		assert.Equal(t, c.kind, api.KindOf(err))
		assert.Contains(t, err.Error(), "agent said no")
	}
}

func TestCreateNexus(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Size     uint64   `json:"size"`
		Children []string `json:"children"`
	}
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(w, http.StatusCreated, nil)
	}))
	defer srv.Close()

	children := []string{"nvmf://h1:8420/a", "nvmf://h2:8420/b"}
	nexus, err := client.CreateNexus(context.Background(), testUUID, 1024, children)
	require.NoError(t, err)
	assert.Equal(t, "/v0/nexuses/"+testUUID, gotPath)
	assert.Equal(t, children, gotBody.Children)
	assert.Equal(t, children, nexus.Children)
}

func TestCreateNexusChildUnreachable(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusBadGateway, map[string]string{"error": "child lost"})
	}))
	defer srv.Close()

	_, err := client.CreateNexus(context.Background(), testUUID, 1024, []string{"nvmf://h1:8420/a"})
	require.Error(t, err)
	assert.Equal(t, api.ErrChildUnreachable, api.KindOf(err))
}

func TestPublishNexus(t *testing.T) {
	var gotPath, gotMethod string
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		respond(w, http.StatusOK, map[string]string{"deviceUri": "nvmf://h3:4420/nqn.2019-05.io.openebs:nexus-" + testUUID})
	}))
	defer srv.Close()

	deviceURI, err := client.PublishNexus(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/v0/nexuses/"+testUUID+"/publish", gotPath)
	assert.Equal(t, "nvmf://h3:4420/nqn.2019-05.io.openebs:nexus-"+testUUID, deviceURI)
}

func TestDestroyReplica(t *testing.T) {
	var gotMethod string
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		respond(w, http.StatusNoContent, nil)
	}))
	defer srv.Close()

	require.NoError(t, client.DestroyReplica(context.Background(), "p1", testUUID))
	assert.Equal(t, "DELETE", gotMethod)
}

func TestAgentUnreachable(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := client.CreateReplica(context.Background(), "p1", testUUID, 1024, false)
	require.Error(t, err)
	assert.True(t, api.IsUnreachable(err))
}

func TestPoolReusesClients(t *testing.T) {
	pool := agents.NewPool(0, 0)
	a := pool.Agent("h1")
	b := pool.Agent("h1")
	c := pool.Agent("h2")
	assert.True(t, a == b)
	assert.False(t, a == c)
}
