package rest

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/michaelbeaumont/mayastor/api"
)

//APIError is the error payload reported back to the client
type APIError struct {
	Error string `json:"error"`
}

//SendHTTPResponse sends a JSON response back to the client
func SendHTTPResponse(w http.ResponseWriter, statusCode int, rsp interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if rsp == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Error().Err(err).Msg("failed to send response")
	}
}

//SendHTTPError reports an error back to the client, mapping the error
//kind onto a status code
func SendHTTPError(w http.ResponseWriter, err error) {
	SendHTTPResponse(w, statusFor(err), APIError{Error: err.Error()})
}

func statusFor(err error) int {
	if api.IsValidation(err) {
		return http.StatusBadRequest
	}
	switch api.KindOf(err) {
	case api.ErrNotFound:
		return http.StatusNotFound
	case api.ErrAlreadyExists:
		return http.StatusConflict
	case api.ErrInsufficientCapacity:
		return http.StatusInsufficientStorage
	case api.ErrAgentUnreachable, api.ErrChildUnreachable:
		return http.StatusBadGateway
	case api.ErrSizeMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
