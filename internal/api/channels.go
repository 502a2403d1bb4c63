package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// untypedKind is reported for channels that accept any kind.
const untypedKind = "ANY"

// ChannelView is the JSON form of an acquisition channel.
type ChannelView struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Writable  bool        `json:"writable"`
	Listeners int         `json:"listeners"`
	Latest    *LatestView `json:"latest,omitempty"`
}

// LatestView is a channel's most recent record.
type LatestView struct {
	Value     value.Value `json:"value"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

func newChannelView(ch *acquisition.Channel) ChannelView {
	kind := ch.Kind().String()
	if ch.Kind() == value.KindNull {
		kind = untypedKind
	}

	view := ChannelView{
		ID:        ch.ID(),
		Kind:      kind,
		Writable:  ch.Writable(),
		Listeners: ch.ListenerCount(),
	}
	if rec, ok := ch.Latest(); ok {
		view.Latest = &LatestView{
			Value:     rec.Value,
			Type:      rec.Value.Kind().String(),
			Timestamp: rec.Timestamp,
		}
	}
	return view
}

// handleListChannels returns every channel sorted by ID.
//
// Query parameters:
//   - writable: "true" for IEC 104 targets only, "false" for sources only
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	var filter *bool
	switch r.URL.Query().Get("writable") {
	case "":
	case "true":
		t := true
		filter = &t
	case "false":
		f := false
		filter = &f
	default:
		writeBadRequest(w, "writable must be true or false")
		return
	}

	ids := s.channels.IDs()
	sort.Strings(ids)

	views := make([]ChannelView, 0, len(ids))
	for _, id := range ids {
		ch, ok := s.channels.Channel(id)
		if !ok {
			continue
		}
		if filter != nil && ch.Writable() != *filter {
			continue
		}
		views = append(views, newChannelView(ch))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channels": views,
		"count":    len(views),
	})
}

// handleGetChannel returns a single channel.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ch, ok := s.channels.Channel(id)
	if !ok {
		writeNotFound(w, "channel not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, newChannelView(ch))
}
