package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/shehryarbajwa/deckard-mini/internal/console"
	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
	"github.com/shehryarbajwa/deckard-mini/internal/session"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	tabs      *console.Manager
	maxUpload int64
	trusted   map[string]bool
	logger    *logrus.Entry
}

// NewHandler creates a new HTTP handler. Uploads larger than maxUpload
// bytes are refused before reaching the upstream.
func NewHandler(tabs *console.Manager, maxUpload int64) *Handler {
	return &Handler{
		tabs:      tabs,
		maxUpload: maxUpload,
		trusted:   make(map[string]bool),
		logger:    logging.NewLogger("api"),
	}
}

// TrustProxies lists the proxy addresses whose X-Forwarded-For header
// identifies the client for rate limiting
func (h *Handler) TrustProxies(addrs ...string) {
	for _, addr := range addrs {
		h.trusted[addr] = true
	}
}

// CreateTab handles POST /v1/tabs
func (h *Handler) CreateTab(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabs.Open(r.URL.Query(), r.Header.Get("Accept-Language"), requestOrigin(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tab.Page.Snapshot())
}

// ListTabs handles GET /v1/tabs
func (h *Handler) ListTabs(w http.ResponseWriter, r *http.Request) {
	tabs := h.tabs.List()
	states := make([]models.TabState, 0, len(tabs))
	for _, t := range tabs {
		states = append(states, t.Page.Snapshot())
	}

	writeJSON(w, http.StatusOK, states)
}

// GetTab handles GET /v1/tabs/{id}
func (h *Handler) GetTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, tab.Page.Snapshot())
}

// SelectTab handles POST /v1/tabs/{id}/select
func (h *Handler) SelectTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req models.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, deckerr.New(deckerr.ErrCodeValidation, "Invalid request body: "+err.Error()))
		return
	}
	if err := tab.Page.Select(req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tab.Page.Snapshot())
}

// UploadTab handles POST /v1/tabs/{id}/upload. A multipart po_file field
// uploads a local translation; a po_name field alone asks the upstream to
// fetch the named one.
func (h *Handler) UploadTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.lookup(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	source, module, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			// same outcome as an upstream refusing the size
			h.logger.WithField("tab", tab.ID).Info("Upload over the size cap")
			tab.Controller.Abort()
			tab.Page.Alert(deckerr.MsgTooLarge)
			writeError(w, deckerr.TooLarge(err))
			return
		}
		writeError(w, err)
		return
	}
	if module == "" {
		module = tab.Page.View().Module
	}

	if err := tab.Controller.Upload(tab.Context(), module, source); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tab.Page.Snapshot())
}

// SpawnTab handles POST /v1/tabs/{id}/spawn
func (h *Handler) SpawnTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := tab.Controller.Spawn(tab.Context(), tab.Page.View()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tab.Page.Snapshot())
}

// AbortTab handles POST /v1/tabs/{id}/abort
func (h *Handler) AbortTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.lookup(w, r)
	if !ok {
		return
	}

	tab.Controller.Abort()
	writeJSON(w, http.StatusOK, tab.Page.Snapshot())
}

// ShareTab handles GET /v1/tabs/{id}/share
func (h *Handler) ShareTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url": tab.Page.ShareURL(),
	})
}

// DeleteTab handles DELETE /v1/tabs/{id}
func (h *Handler) DeleteTab(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.tabs.Close(id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*console.Tab, bool) {
	vars := mux.Vars(r)
	id := vars["id"]

	tab, err := h.tabs.Get(id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return tab, true
}

func readUpload(r *http.Request) (session.Source, string, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		if err := r.ParseForm(); err != nil {
			return nil, "", err
		}
	}
	module := r.FormValue("po_module")

	file, header, err := r.FormFile("po_file")
	if err == nil {
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		name := r.FormValue("po_name")
		if name == "" {
			name = header.Filename
		}
		return session.LocalFile{Name: name, Content: content}, module, nil
	}

	name := r.FormValue("po_name")
	if name == "" {
		return nil, "", deckerr.New(deckerr.ErrCodeValidation, "po_file or po_name is required")
	}
	return session.RemoteFile(name), module, nil
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with the status matching the error code
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch deckerr.GetCode(err) {
	case deckerr.ErrCodeValidation, deckerr.ErrCodeUsage:
		status = http.StatusBadRequest
	case deckerr.ErrCodeNotFound:
		status = http.StatusNotFound
	case deckerr.ErrCodeBusy:
		status = http.StatusConflict
	case deckerr.ErrCodeTooLarge:
		status = http.StatusRequestEntityTooLarge
	case deckerr.ErrCodeApplication:
		status = http.StatusUnprocessableEntity
	case deckerr.ErrCodeSessionExpired:
		status = http.StatusGone
	case deckerr.ErrCodeTransport, deckerr.ErrCodeBadResponse:
		status = http.StatusBadGateway
	}

	code := deckerr.GetCode(err)
	if code == "" {
		code = deckerr.ErrCodeInternal
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": deckerr.MessageOf(err),
	})
}
