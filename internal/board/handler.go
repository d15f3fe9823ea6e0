package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/inkboard/inkboard/internal/auth"
	"github.com/inkboard/inkboard/internal/collab"
	"github.com/inkboard/inkboard/internal/editor"
	"github.com/inkboard/inkboard/internal/storage"
)

const (
	maxContentSize   = 4 << 20
	maxThumbnailSize = 2 << 20
)

type Handler struct {
	service *Service
	auth    *auth.Service
	hub     *collab.Hub
	origins []string
}

// NewHandler builds the document endpoints. allowedOrigins are full origins
// such as http://localhost:5173; the websocket check matches on their host.
func NewHandler(service *Service, authSvc *auth.Service, hub *collab.Hub, allowedOrigins []string) *Handler {
	var patterns []string
	for _, o := range allowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return &Handler{service: service, auth: authSvc, hub: hub, origins: patterns}
}

// Routes mounts the REST endpoints on an authenticated router.
func (h *Handler) Routes(api *mux.Router) {
	api.HandleFunc("/documents", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.List).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/content", h.Content).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/content", h.SaveContent).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/thumbnail", h.Thumbnail).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/thumbnail", h.PutThumbnail).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/export.pdf", h.ExportPDF).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/viewers", h.Viewers).Methods(http.MethodGet)
}

type createRequest struct {
	Kind    storage.Kind    `json:"kind"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentSize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	doc, err := h.service.Create(r.Context(), userID, req.Kind, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	docs, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list documents failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	doc, err := h.service.Get(r.Context(), documentID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	content, err := h.service.Content(r.Context(), documentID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(content)
}

func (h *Handler) SaveContent(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContentSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content too large"})
		return
	}

	doc, err := h.service.SaveContent(r.Context(), documentID, userID, body, r.Header.Get(storage.ClientIDHeader))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	png, err := h.service.Thumbnail(r.Context(), documentID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handler) PutThumbnail(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxThumbnailSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "thumbnail too large"})
		return
	}

	if err := h.service.PutThumbnail(r.Context(), documentID, userID, body); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	// Buffer so a failed render still gets a JSON error instead of a torn PDF.
	var buf bytes.Buffer
	if err := h.service.ExportPDF(r.Context(), documentID, userID, &buf); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+documentID+`.pdf"`)
	w.Write(buf.Bytes())
}

// Viewers lists who has the document open right now.
func (h *Handler) Viewers(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	if _, err := h.service.Get(r.Context(), documentID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	viewers := h.hub.Viewers(documentID)
	if viewers == nil {
		viewers = []collab.Viewer{}
	}
	writeJSON(w, http.StatusOK, viewers)
}

// WebSocket subscribes the caller to saves of one document. The token may
// travel in the query since browsers cannot set handshake headers.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	userID, err := h.auth.Authenticate(r, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if _, err := h.service.Get(r.Context(), documentID, userID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "document not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrForbidden):
			http.Error(w, "not the document owner", http.StatusForbidden)
		default:
			slog.Error("websocket document lookup", "document", documentID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	h.hub.Serve(r.Context(), conn, userID, user.DisplayName, documentID)
}

// EditorSettings serves the editor tunables the server was configured with.
func EditorSettings(s editor.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s)
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, storage.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, storage.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
