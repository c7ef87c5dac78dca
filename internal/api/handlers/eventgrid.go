package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

const (
	eventTypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"
	// Event Grid limits a delivery batch to 1 MB.
	maxEventBatchBytes = 1 << 20
)

type eventGridEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
}

type eventGridData struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	ValidationCode string `json:"validationCode"`
}

// Dispatcher starts processing of a stored raw résumé.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string) error
}

// EventGridHandler receives change notifications for the raw résumé
// collection and blob container.
type EventGridHandler struct {
	dispatcher Dispatcher
	secret     string
}

func NewEventGridHandler(d Dispatcher, secret string) *EventGridHandler {
	return &EventGridHandler{dispatcher: d, secret: secret}
}

// Handle answers the subscription validation handshake and dispatches
// processing for document and blob events. Undecodable batches are answered
// with 200 so Event Grid does not redeliver them.
func (h *EventGridHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var events []eventGridEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBatchBytes)).Decode(&events); err != nil {
		slog.Warn("invalid event grid payload", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "invalid event payload"})
		return
	}

	if len(events) > 0 && events[0].EventType == eventTypeSubscriptionValidation {
		var data eventGridData
		if err := json.Unmarshal(events[0].Data, &data); err != nil || data.ValidationCode == "" {
			writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "missing validation code"})
			return
		}
		slog.Info("event grid subscription validation", "event_id", events[0].ID)
		writeJSON(w, http.StatusOK, map[string]string{"validationResponse": data.ValidationCode})
		return
	}

	dispatched := 0
	for _, ev := range events {
		if !strings.Contains(ev.EventType, "Microsoft.DocumentDB") && !strings.Contains(ev.EventType, "Microsoft.Storage") {
			continue
		}
		id := resumeIDFromEvent(ev)
		if id == "" {
			slog.Warn("event grid event without resume id", "event_id", ev.ID, "event_type", ev.EventType)
			continue
		}
		if err := h.dispatcher.Dispatch(r.Context(), id); err != nil {
			slog.Error("failed to dispatch resume from event", "resume_id", id, "event_id", ev.ID, "error", err)
			continue
		}
		dispatched++
	}

	slog.Info("event grid batch handled", "events", len(events), "dispatched", dispatched)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *EventGridHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get("aeg-sas-key")
	if got == "" {
		got = r.URL.Query().Get("code")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

// resumeIDFromEvent reads data.id, or else the blob name of data.url
// without its extension.
func resumeIDFromEvent(ev eventGridEvent) string {
	var data eventGridData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return ""
	}
	if data.ID != "" {
		return data.ID
	}
	if data.URL == "" {
		return ""
	}
	base := path.Base(data.URL)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if base == "/" || base == "." {
		return ""
	}
	return base
}
