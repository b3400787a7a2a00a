// Package agents implements the storage agent client used by the volume
// orchestrator. Agents expose a small JSON control endpoint per node;
// one Client talks to one node and a Pool hands out cached clients
// keyed by host.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/michaelbeaumont/mayastor/api"
)

//DefaultPort is the control port storage agents listen on
const DefaultPort = 10124

//DefaultTimeout bounds every agent call so a hung agent cannot block the
//orchestrating task indefinitely
const DefaultTimeout = 30 * time.Second

//Client talks to the storage agent on a single host
type Client struct {
	host string
	base string
	http *http.Client
}

//NewClient creates a client for the agent on host. A zero port or
//timeout selects the default.
func NewClient(host string, port int, timeout time.Duration) *Client {
	if port == 0 {
		port = DefaultPort
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		host: host,
		base: fmt.Sprintf("http://%s:%d/v0", host, port),
		http: &http.Client{Timeout: timeout},
	}
}

//Host returns the host this client talks to
func (c *Client) Host() string {
	return c.host
}

type createReplicaRequest struct {
	Size uint64 `json:"size"`
	Thin bool   `json:"thin"`
}

type replicaResponse struct {
	URI string `json:"uri"`
}

type createNexusRequest struct {
	Size     uint64   `json:"size"`
	Children []string `json:"children"`
}

type publishResponse struct {
	DeviceURI string `json:"deviceUri"`
}

type errorResponse struct {
	Error string `json:"error"`
}

//CreateReplica creates a replica of uuid on the given pool and shares it
//over nvmf, returning the replica with its connect URI
func (c *Client) CreateReplica(ctx context.Context, pool string, uuid string, size uint64, thin bool) (*api.Replica, error) {
	var resp replicaResponse
	url := fmt.Sprintf("%s/pools/%s/replicas/%s", c.base, pathEscape(pool), pathEscape(uuid))
	err := c.do(ctx, "PUT", url, createReplicaRequest{Size: size, Thin: thin}, http.StatusCreated, &resp)
	if err != nil {
		return nil, err
	}
	return &api.Replica{
		UUID: uuid,
		Host: c.host,
		Pool: pool,
		Size: size,
		Thin: thin,
		URI:  resp.URI,
	}, nil
}

//DestroyReplica removes the replica of uuid from the given pool
func (c *Client) DestroyReplica(ctx context.Context, pool string, uuid string) error {
	url := fmt.Sprintf("%s/pools/%s/replicas/%s", c.base, pathEscape(pool), pathEscape(uuid))
	return c.do(ctx, "DELETE", url, nil, http.StatusNoContent, nil)
}

//CreateNexus creates a nexus of uuid over the given child replica URIs
func (c *Client) CreateNexus(ctx context.Context, uuid string, size uint64, children []string) (*api.Nexus, error) {
	url := fmt.Sprintf("%s/nexuses/%s", c.base, pathEscape(uuid))
	err := c.do(ctx, "PUT", url, createNexusRequest{Size: size, Children: children}, http.StatusCreated, nil)
	if err != nil {
		return nil, err
	}
	return &api.Nexus{UUID: uuid, Size: size, Children: children}, nil
}

//DestroyNexus removes the nexus of uuid
func (c *Client) DestroyNexus(ctx context.Context, uuid string) error {
	url := fmt.Sprintf("%s/nexuses/%s", c.base, pathEscape(uuid))
	return c.do(ctx, "DELETE", url, nil, http.StatusNoContent, nil)
}

//PublishNexus exposes the nexus of uuid over the network block protocol
//and returns the device URI initiators connect to. Publishing an already
//published nexus returns the existing device URI.
func (c *Client) PublishNexus(ctx context.Context, uuid string) (string, error) {
	var resp publishResponse
	url := fmt.Sprintf("%s/nexuses/%s/publish", c.base, pathEscape(uuid))
	err := c.do(ctx, "POST", url, nil, http.StatusOK, &resp)
	if err != nil {
		return "", err
	}
	return resp.DeviceURI, nil
}

func (c *Client) do(ctx context.Context, method string, url string, body interface{}, expect int, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s request", method, url)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return errors.Wrapf(err, "building %s %s request", method, url)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return api.NewError(api.ErrAgentUnreachable, err, "agent %s", c.host)
	}
	defer resp.Body.Close()

	payload, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return api.NewError(api.ErrAgentUnreachable, err, "agent %s: reading response", c.host)
	}
	if resp.StatusCode != expect {
		return c.errorFromStatus(resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return errors.Wrapf(err, "agent %s: decoding response", c.host)
		}
	}
	return nil
}

//pathEscape keeps pool names and identities with reserved characters
//from corrupting the request path
func pathEscape(segment string) string {
	return url.PathEscape(segment)
}

//errorFromStatus maps the agent's status codes onto the error taxonomy
func (c *Client) errorFromStatus(code int, payload []byte) error {
	msg := string(payload)
	var er errorResponse
	if json.Unmarshal(payload, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	kind := api.ErrUnknown
	switch code {
	case http.StatusNotFound:
		kind = api.ErrNotFound
	case http.StatusConflict:
		kind = api.ErrAlreadyExists
	case http.StatusUnprocessableEntity:
		kind = api.ErrSizeMismatch
	case http.StatusBadGateway:
		kind = api.ErrChildUnreachable
	case http.StatusInsufficientStorage:
		kind = api.ErrInsufficientCapacity
	case http.StatusBadRequest:
		kind = api.ErrInvalidArgument
	}
	return api.NewError(kind, nil, "agent %s: status %d: %s", c.host, code, msg)
}
