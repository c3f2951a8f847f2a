// Package mockserver is a local stand-in for the assemble notebook server
// extension. It serves the same HTTP surface and replaces GitHub with an
// in-process grant page.
package mockserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkt.systems/balletsubmit/internal/logx"
	"pkt.systems/balletsubmit/internal/version"
	"pkt.systems/balletsubmit/schema"
)

// Server serves the assemble endpoints.
type Server struct {
	cfg    Config
	prefix string
	now    func() time.Time

	mu            sync.Mutex
	authenticated bool
	state         string
	granted       chan struct{}
	grantClosed   bool
	submissions   []Submission
}

// New constructs a server.
func New(cfg Config) *Server {
	cfg = cfg.withDefaults()
	prefix := schema.NormalizeRoutePrefix(cfg.RoutePrefix)
	if prefix != "" {
		prefix = "/" + prefix
	}
	return &Server{
		cfg:           cfg,
		prefix:        prefix,
		now:           time.Now,
		authenticated: cfg.Authenticated,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	api := func(method string, endpoint schema.EndpointName, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+s.path(endpoint), withToken(s.cfg.Token, endpoint, h))
	}
	api(http.MethodGet, schema.EndpointStatus, s.handleStatus)
	api(http.MethodGet, schema.EndpointVersion, s.handleVersion)
	api(http.MethodGet, schema.EndpointSettings, s.handleConfig)
	api(http.MethodGet, schema.EndpointSettings+"/{name}", s.handleConfigItem)
	api(http.MethodPost, schema.EndpointSubmit, s.handleSubmit)
	api(http.MethodPost, schema.EndpointToken, s.handleToken)
	api(http.MethodGet, schema.EndpointAuthenticated, s.handleAuthenticated)
	// Browser navigations carry no API token.
	mux.HandleFunc(http.MethodGet+" "+s.path(schema.EndpointAuthorize), s.handleAuthorize)
	mux.HandleFunc(http.MethodGet+" "+s.path(schema.EndpointCallback), s.handleCallback)
	return withRequestLogging(mux)
}

func (s *Server) path(endpoint schema.EndpointName) string {
	return s.prefix + "/" + string(endpoint)
}

// Authenticated reports whether a GitHub token has been granted.
func (s *Server) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetAuthenticated overrides the authentication state.
func (s *Server) SetAuthenticated(authenticated bool) {
	s.mu.Lock()
	s.authenticated = authenticated
	s.mu.Unlock()
}

// Submissions returns the recorded successful submissions.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Approve grants the pending authorization request, if any.
func (s *Server) Approve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return false
	}
	s.grantLocked()
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schema.StatusResponse{Status: "OK"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	assemble := version.Current()
	info := schema.VersionInfo{Assemble: &assemble}
	if s.cfg.Project != "" {
		project := s.cfg.Project
		info.Project = &project
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.settings())
}

func (s *Server) handleConfigItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	value, ok := s.cfg.settings()[name]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{name: value})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	log := logx.WithEndpoint(r.Context(), schema.EndpointSubmit)
	var payload struct {
		CodeContent *string `json:"codeContent"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("mock submit decode failed", "err", err)
		writeSubmit(w, http.StatusBadRequest, false, "", "Bad request")
		return
	}
	code := ""
	if payload.CodeContent != nil {
		code = *payload.CodeContent
	}
	log = logx.WithSubmission(log, code)
	if strings.TrimSpace(code) == "" {
		log.Info("mock submit rejected", "reason", "empty")
		writeSubmit(w, http.StatusOK, false, "", schema.ErrEmptyCode.Error())
		return
	}

	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		log.Info("mock submit rejected", "reason", "unauthenticated")
		writeSubmit(w, http.StatusOK, false, "", schema.ErrNotAuthenticated.Error())
		return
	}
	sub := Submission{
		Branch: "submit-feature-" + uuid.New().String(),
		Code:   code,
		URL:    strings.TrimRight(s.cfg.PullRequestBase, "/") + "/" + strconv.Itoa(len(s.submissions)+1),
		At:     s.now(),
	}
	s.submissions = append(s.submissions, sub)
	s.mu.Unlock()

	log.Info("mock submit accepted", "branch", sub.Branch, "url", sub.URL)
	writeSubmit(w, http.StatusOK, true, sub.URL, "")
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	state := s.pendingLocked()
	if s.cfg.AutoApprove {
		s.grantLocked()
	}
	s.mu.Unlock()
	logx.WithEndpoint(r.Context(), schema.EndpointAuthorize).Info("mock authorize", "auto_approve", s.cfg.AutoApprove)
	target := s.path(schema.EndpointCallback) + "?" + url.Values{"state": {state}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	log := logx.WithEndpoint(r.Context(), schema.EndpointCallback)
	state := r.URL.Query().Get("state")
	s.mu.Lock()
	ok := state != "" && state == s.state
	if ok {
		s.grantLocked()
	}
	s.mu.Unlock()
	if !ok {
		log.Warn("mock callback state mismatch")
		writeMessage(w, http.StatusBadRequest, "state mismatch")
		return
	}
	log.Info("mock callback granted")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "<!doctype html><title>ballet</title><p>%s</p>", html.EscapeString("GitHub access granted. You can close this window."))
}

// handleToken waits for the pending grant, bounded by the access token
// timeout. The pending state is reset either way.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	log := logx.WithEndpoint(r.Context(), schema.EndpointToken)
	s.mu.Lock()
	s.pendingLocked()
	granted := s.granted
	s.mu.Unlock()

	timer := time.NewTimer(s.cfg.AccessTokenTimeout)
	defer timer.Stop()
	select {
	case <-granted:
		s.mu.Lock()
		s.authenticated = true
		s.resetLocked(granted)
		s.mu.Unlock()
		log.Info("mock token issued")
		w.WriteHeader(http.StatusOK)
	case <-timer.C:
		s.mu.Lock()
		s.resetLocked(granted)
		s.mu.Unlock()
		log.Warn("mock token timeout", "timeout_s", int(s.cfg.AccessTokenTimeout.Seconds()))
		writeMessage(w, http.StatusBadRequest, "timeout")
	case <-r.Context().Done():
	}
}

func (s *Server) handleAuthenticated(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schema.AuthenticatedResponse{Result: s.Authenticated()})
}

// pendingLocked returns the current OAuth state, creating one if needed.
func (s *Server) pendingLocked() string {
	if s.state == "" {
		s.state = uuid.New().String()
		s.granted = make(chan struct{})
		s.grantClosed = false
	}
	return s.state
}

func (s *Server) grantLocked() {
	if s.granted != nil && !s.grantClosed {
		close(s.granted)
		s.grantClosed = true
	}
}

// resetLocked clears the state if it still belongs to granted.
func (s *Server) resetLocked(granted chan struct{}) {
	if s.granted == granted {
		s.state = ""
		s.granted = nil
		s.grantClosed = false
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, schema.MessageResponse{Message: &message})
}

func writeSubmit(w http.ResponseWriter, status int, ok bool, url, message string) {
	resp := schema.SubmitResponse{Result: ok}
	if url != "" {
		resp.URL = &url
	}
	if message != "" {
		resp.Message = &message
	}
	writeJSON(w, status, resp)
}
