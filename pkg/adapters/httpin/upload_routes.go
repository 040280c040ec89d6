package httpin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jademcosta/courier/pkg/adapters/httpin/httpmiddleware"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/transfer"
)

const bufferParam = "buffer"

var payloadMaxSizeErr *http.MaxBytesError

type uploadRequestItem struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type uploadsRequest struct {
	Uploads []uploadRequestItem `json:"uploads"`
}

type acceptedResponse struct {
	Buffer   int64 `json:"buffer"`
	Accepted int   `json:"accepted"`
}

type bufferUploadsResponse struct {
	Buffer  int64               `json:"buffer"`
	Ratio   float64             `json:"ratio"`
	Uploads []transfer.Snapshot `json:"uploads"`
}

type allUploadsResponse struct {
	Ratio   float64             `json:"ratio"`
	Uploads []transfer.Snapshot `json:"uploads"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func RegisterUploadRoutes(api *API, version string, token string) {
	api.mux.Route("/"+version, func(r chi.Router) {
		if token != "" {
			r.Use(httpmiddleware.Auth(token))
		}

		r.Get("/buffers", listBuffers(api))
		r.Post("/buffers/{buffer}/uploads", startUploads(api))
		r.Put("/buffers/{buffer}/uploads", filterUploads(api))
		r.Get("/buffers/{buffer}/uploads", bufferUploads(api))
		r.Get("/buffers/{buffer}/events", bufferEvents(api))
		r.Delete("/buffers/{buffer}", disposeBuffer(api))
		r.Get("/uploads", allUploads(api))
	})
}

func startUploads(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bufferID, suris, ok := api.parseUploadsRequest(w, r)
		if !ok {
			return
		}
		observeBatchSize("start", len(suris))

		api.registry.ForBuffer(bufferID).StartUploads(suris)
		api.log.Debug("uploads requested", "buffer", bufferID, "count", len(suris))
		writeJSON(w, http.StatusAccepted, acceptedResponse{Buffer: bufferID, Accepted: len(suris)})
	}
}

func filterUploads(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bufferID, suris, ok := api.parseUploadsRequest(w, r)
		if !ok {
			return
		}
		observeBatchSize("filter", len(suris))

		api.registry.ForBuffer(bufferID).FilterUploads(suris)
		api.log.Debug("uploads filtered", "buffer", bufferID, "kept", len(suris))
		writeJSON(w, http.StatusAccepted, acceptedResponse{Buffer: bufferID, Accepted: len(suris)})
	}
}

func bufferUploads(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bufferID, ok := api.parseBufferID(w, r)
		if !ok {
			return
		}

		coord, found := api.registry.Lookup(bufferID)
		if !found {
			writeUnknownBuffer(w, bufferID)
			return
		}
		tasks := coord.ActiveTasks()
		if tasks == nil {
			tasks = []transfer.Snapshot{}
		}

		writeJSON(w, http.StatusOK, bufferUploadsResponse{
			Buffer:  bufferID,
			Ratio:   coord.CurrentRatio(),
			Uploads: tasks,
		})
	}
}

func disposeBuffer(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bufferID, ok := api.parseBufferID(w, r)
		if !ok {
			return
		}

		if !api.registry.Dispose(bufferID) {
			writeUnknownBuffer(w, bufferID)
			return
		}

		api.log.Info("buffer disposed", "buffer", bufferID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func listBuffers(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		buffers := api.registry.Buffers()
		if buffers == nil {
			buffers = []int64{}
		}
		writeJSON(w, http.StatusOK, map[string][]int64{"buffers": buffers})
	}
}

func allUploads(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if api.mirror == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "the uploads mirror is disabled"})
			return
		}

		writeJSON(w, http.StatusOK, allUploadsResponse{
			Ratio:   api.mirror.Ratio(),
			Uploads: api.mirror.Snapshot(),
		})
	}
}

func (api *API) parseBufferID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, bufferParam)
	bufferID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid buffer id %q", raw)})
		return 0, false
	}
	return bufferID, true
}

func (api *API) parseUploadsRequest(w http.ResponseWriter, r *http.Request) (int64, []*domain.Suri, bool) {
	bufferID, ok := api.parseBufferID(w, r)
	if !ok {
		return 0, nil, false
	}

	req := &uploadsRequest{}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(req)
	if err != nil {
		api.log.Warn("invalid uploads request", "buffer", bufferID, "error", err)
		if errors.As(err, &payloadMaxSizeErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body is too large"})
			return 0, nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("malformed body: %v", err)})
		return 0, nil, false
	}

	suris := make([]*domain.Suri, 0, len(req.Uploads))
	for i, item := range req.Uploads {
		if item.Source == "" || item.Destination == "" {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{Error: fmt.Sprintf("upload %d needs both a source and a destination", i)})
			return 0, nil, false
		}
		suris = append(suris, domain.NewSuri(item.Source, item.Destination))
	}

	return bufferID, suris, true
}

func writeUnknownBuffer(w http.ResponseWriter, bufferID int64) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("buffer %d is unknown", bufferID)})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	response, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response) //nolint:errcheck
}
