// Package transporttest provides an in-memory upstream preview server for tests.
package transporttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

type upstreamSession struct {
	port   int
	custom []customPO // oldest first
}

type customPO struct {
	name   string
	module string
}

// Upstream mimics the preview server: sessions keyed by token, a bounded
// queue of uploaded translations per session and one port per session.
type Upstream struct {
	*httptest.Server

	mu        sync.Mutex
	sessions  map[string]*upstreamSession
	firstPort int
	nextPort  int
	maxCustom int
	maxUpload int64

	requests []Request
	expire   bool
}

// Request is one request the upstream received
type Request struct {
	Action  string
	Session string
	Fields  map[string]string
	File    []byte
}

// NewUpstream starts a fake upstream server
func NewUpstream() *Upstream {
	u := &Upstream{
		sessions:  make(map[string]*upstreamSession),
		firstPort: 8081,
		nextPort:  8081,
		maxCustom: 4,
		maxUpload: 1 << 16,
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

// SessionCount returns the number of live sessions
func (u *Upstream) SessionCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.sessions)
}

// SetExpire makes every later keep-alive answer status:error
func (u *Upstream) SetExpire(expire bool) {
	u.mu.Lock()
	u.expire = expire
	u.mu.Unlock()
}

// Requests returns every decoded request, in arrival order
func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Request(nil), u.requests...)
}

// Last returns the most recent request
func (u *Upstream) Last() Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		return Request{}
	}
	return u.requests[len(u.requests)-1]
}

func (u *Upstream) handle(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		u.handleUpload(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := Request{Action: r.PostForm.Get("action"), Session: r.PostForm.Get("session"), Fields: flatten(r.PostForm)}
	u.record(req)

	switch req.Action {
	case models.ActionSpawn:
		u.handleSpawn(w, req)
	case models.ActionKeepAlive:
		u.handleKeepAlive(w, req)
	default:
		writeJSON(w, map[string]string{"status": "error", "message": "Unknown action"})
	}
}

func (u *Upstream) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxUpload)
	if err := r.ParseMultipartForm(u.maxUpload); err != nil {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
		return
	}

	req := Request{Action: "upload", Session: r.FormValue("session"), Fields: flatten(r.MultipartForm.Value)}
	if file, _, err := r.FormFile("po_file"); err == nil {
		req.File, _ = io.ReadAll(file)
		file.Close()
	}
	u.record(req)

	name := r.FormValue("po_name")
	module := r.FormValue("po_module")
	if !strings.HasSuffix(strings.ToLower(name), ".po") {
		writeJSON(w, models.UploadReply{Status: models.StatusError, Message: "This is not a PO file\n\n" + name + " is not a PO file."})
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	token, s := u.getOrCreate(req.Session)

	kept := s.custom[:0]
	for _, po := range s.custom {
		if po.name != name {
			kept = append(kept, po)
		}
	}
	s.custom = kept
	if len(s.custom) >= u.maxCustom {
		s.custom = s.custom[1:]
	}
	s.custom = append(s.custom, customPO{name: name, module: module})

	index := make(map[string][]string)
	for _, po := range s.custom {
		index[po.module] = append(index[po.module], po.name)
	}
	writeJSON(w, models.UploadReply{Status: models.StatusOK, Session: token, CustomFiles: index})
}

func (u *Upstream) handleSpawn(w http.ResponseWriter, req Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if req.Fields["module"] == "" || req.Fields["file"] == "" {
		writeJSON(w, models.SpawnReply{Status: models.StatusError, Message: "Missing module or file"})
		return
	}
	token, s := u.getOrCreate(req.Session)
	if s.port == 0 {
		s.port = u.nextPort
		u.nextPort++
	}
	writeJSON(w, models.SpawnReply{Status: models.StatusOK, Session: token, Port: s.port})
}

func (u *Upstream) handleKeepAlive(w http.ResponseWriter, req Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.sessions[req.Session]; !ok || u.expire {
		delete(u.sessions, req.Session)
		writeJSON(w, models.KeepAliveReply{Status: models.StatusError})
		return
	}
	writeJSON(w, models.KeepAliveReply{Status: models.StatusOK, UsersCount: len(u.sessions)})
}

func (u *Upstream) getOrCreate(token string) (string, *upstreamSession) {
	if s, ok := u.sessions[token]; ok {
		return token, s
	}
	token = uuid.New().String()
	s := &upstreamSession{}
	u.sessions[token] = s
	return token, s
}

func (u *Upstream) record(req Request) {
	u.mu.Lock()
	u.requests = append(u.requests, req)
	u.mu.Unlock()
}

func flatten(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode: %v", err), http.StatusInternalServerError)
	}
}
