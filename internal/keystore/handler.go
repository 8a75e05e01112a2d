package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/metrics"
)

// Pinger is implemented by sources with a remote backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves GET /{name} from a Source.
type Handler struct {
	kind   string
	label  string
	source Source
	logger *slog.Logger
}

// NewHandler creates a handler for documents of kind ("schema" or "values").
func NewHandler(kind string, source Source, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	label := kind
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return &Handler{kind: kind, label: label, source: source, logger: logger}
}

// Router returns the collaborator's HTTP routes.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.HandleFunc("/health", h.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/{name}", h.getHandler).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func (h *Handler) getHandler(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil || !ValidName(name) {
		h.respondError(w, http.StatusBadRequest, "Invalid application name")
		return
	}

	data, err := h.source.Load(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondError(w, http.StatusNotFound, h.label+" not found")
			return
		}
		h.logger.Error("Failed to load document", "kind", h.kind, "name", name, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to load "+h.kind+" file")
		return
	}
	if !json.Valid(data) {
		h.logger.Error("Stored document is not valid JSON", "kind", h.kind, "name", name)
		h.respondError(w, http.StatusInternalServerError, "Failed to load "+h.kind+" file")
		return
	}

	metrics.StoreRequests.WithLabelValues(h.kind, strconv.Itoa(http.StatusOK)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.source.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "kind": h.kind})
}

func (h *Handler) respondError(w http.ResponseWriter, status int, detail string) {
	metrics.StoreRequests.WithLabelValues(h.kind, strconv.Itoa(status)).Inc()
	writeDetail(w, status, detail)
}

// ValidName rejects empty names and anything that could escape the store.
func ValidName(name string) bool {
	return name != "" && !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
