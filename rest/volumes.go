package rest

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/michaelbeaumont/mayastor/api"
	"github.com/michaelbeaumont/mayastor/volumes"
)

//VolumeCommand serves the volume provisioning routes on top of a Creator
type VolumeCommand struct {
	Creator *volumes.Creator
}

//VolumeCreateRequest is the payload of POST /v0/volumes
type VolumeCreateRequest struct {
	UUID      string   `json:"uuid,omitempty"`
	Pools     []string `json:"pools"`
	NexusHost string   `json:"nexus"`
	Size      uint64   `json:"size"`
	Thin      bool     `json:"thin,omitempty"`
}

//VolumeCreateResponse reports the published volume back to the client
type VolumeCreateResponse struct {
	UUID      string `json:"uuid"`
	DeviceURI string `json:"deviceUri"`
}

func (c *VolumeCommand) volumeCreate(w http.ResponseWriter, r *http.Request) {
	var req VolumeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendHTTPError(w, api.NewError(api.ErrInvalidArgument, err, "request unable to be parsed"))
		return
	}

	id := req.UUID
	if id == "" {
		u, err := uuid.NewRandom()
		if err != nil {
			SendHTTPError(w, err)
			return
		}
		id = u.String()
	}

	vol := volumes.Volume{
		ID:        id,
		Pools:     req.Pools,
		NexusHost: req.NexusHost,
		Size:      req.Size,
		Thin:      req.Thin,
	}
	deviceURI, err := c.Creator.Create(r.Context(), vol)
	if err != nil {
		log.Error().Err(err).Str("volume", id).Msg("volume create failed")
		SendHTTPError(w, err)
		return
	}
	SendHTTPResponse(w, http.StatusCreated, VolumeCreateResponse{
		UUID:      vol.ID,
		DeviceURI: deviceURI,
	})
}

//VolumeDestroyRequest is the payload of DELETE /v0/volumes/{uuid}. The
//orchestrator keeps no volume records, so the caller resupplies the
//locators the volume was created with.
type VolumeDestroyRequest struct {
	Pools     []string `json:"pools"`
	NexusHost string   `json:"nexus"`
}

func (c *VolumeCommand) volumeDestroy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["uuid"]

	var req VolumeDestroyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendHTTPError(w, api.NewError(api.ErrInvalidArgument, err, "request unable to be parsed"))
		return
	}

	vol := volumes.Volume{
		ID:        id,
		Pools:     req.Pools,
		NexusHost: req.NexusHost,
	}
	if err := c.Creator.Destroy(r.Context(), vol); err != nil {
		log.Error().Err(err).Str("volume", id).Msg("volume destroy failed")
		SendHTTPError(w, err)
		return
	}
	SendHTTPResponse(w, http.StatusNoContent, nil)
}

//Routes returns the routes served by the volume command
func (c *VolumeCommand) Routes() Routes {
	return Routes{
		Route{
			Name:        "VolumeCreate",
			Method:      "POST",
			Pattern:     "/v0/volumes",
			HandlerFunc: c.volumeCreate},
		Route{
			Name:        "VolumeDestroy",
			Method:      "DELETE",
			Pattern:     "/v0/volumes/{uuid}",
			HandlerFunc: c.volumeDestroy},
	}
}
