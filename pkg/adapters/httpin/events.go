package httpin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
)

const (
	eventStreamBufferSize = 256
	// Progress may only fill this much of the buffer. The rest is kept for
	// lifecycle events.
	progressBacklogLimit = eventStreamBufferSize / 2
	keepAliveInterval    = 15 * time.Second
)

const (
	eventUploadsStarted = "uploads_started"
	eventProgress       = "progress"
	eventUploadDone     = "upload_done"
	eventUploadFailure  = "upload_failure"
	eventFinished       = "finished"
)

type streamEvent struct {
	name string
	data interface{}
}

type progressPayload struct {
	Ratio float64 `json:"ratio"`
}

type uploadPayload struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Location    string `json:"location,omitempty"`
	Error       string `json:"error,omitempty"`
	Cancelled   bool   `json:"cancelled,omitempty"`
}

// streamObserver turns coordinator notifications into server-sent events.
// The coordinator must never wait on a slow client. Progress that does not fit
// is dropped. A lifecycle event that does not fit closes lost, and the stream
// is ended so the client reconnects and gets the replay.
type streamObserver struct {
	events   chan streamEvent
	lost     chan struct{}
	lostOnce sync.Once
	dropper  domain.EventDropper
}

func newStreamObserver(dropper domain.EventDropper) *streamObserver {
	return &streamObserver{
		events:  make(chan streamEvent, eventStreamBufferSize),
		lost:    make(chan struct{}),
		dropper: dropper,
	}
}

func (o *streamObserver) OnUploadsStarted() {
	o.deliver(streamEvent{name: eventUploadsStarted, data: struct{}{}})
}

func (o *streamObserver) OnProgress(ratio float64) {
	if len(o.events) >= progressBacklogLimit {
		o.dropper.Drop(eventProgress)
		return
	}
	o.offer(streamEvent{name: eventProgress, data: progressPayload{Ratio: ratio}})
}

func (o *streamObserver) OnUploadDone(suri *domain.Suri) {
	location, _ := suri.Location()
	o.deliver(streamEvent{name: eventUploadDone, data: uploadPayload{
		Source:      suri.Source,
		Destination: suri.Destination,
		Location:    location,
	}})
}

func (o *streamObserver) OnUploadFailure(suri *domain.Suri, err error) {
	o.deliver(streamEvent{name: eventUploadFailure, data: uploadPayload{
		Source:      suri.Source,
		Destination: suri.Destination,
		Error:       err.Error(),
		Cancelled:   domain.IsCancellation(err),
	}})
}

func (o *streamObserver) OnFinished() {
	o.deliver(streamEvent{name: eventFinished, data: struct{}{}})
}

func (o *streamObserver) offer(ev streamEvent) {
	select {
	case o.events <- ev:
	default:
		o.dropper.Drop(ev.name)
	}
}

func (o *streamObserver) deliver(ev streamEvent) {
	select {
	case o.events <- ev:
	default:
		o.dropper.Drop(ev.name)
		o.lostOnce.Do(func() { close(o.lost) })
	}
}

func bufferEvents(api *API) http.HandlerFunc {
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

		rc := http.NewResponseController(w)
		obs := newStreamObserver(api.dropper)

		// Attach before answering: once the client sees the headers, any
		// command it sends is ordered after the attachment.
		coord.AttachObserver(obs)
		defer coord.ReleaseObserver(obs)

		eventStreamsGauge.Inc()
		defer eventStreamsGauge.Dec()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			api.log.Warn("event stream cannot be flushed", "buffer", bufferID, "error", err)
			return
		}

		api.log.Debug("event stream opened", "buffer", bufferID)
		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				api.log.Debug("event stream closed by client", "buffer", bufferID)
				return
			case <-coord.Done():
				return
			case <-api.closing:
				return
			case <-obs.lost:
				api.log.Warn("event stream fell behind, closing it", "buffer", bufferID)
				return
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
			case ev := <-obs.events:
				if err := writeEvent(w, ev); err != nil {
					api.log.Debug("event stream write failed", "buffer", bufferID, "error", err)
					return
				}
			}

			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev streamEvent) error {
	data, err := json.Marshal(ev.data)
	if err != nil {
		return fmt.Errorf("error encoding %s event: %w", ev.name, err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}
