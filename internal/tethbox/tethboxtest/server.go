// Package tethboxtest provides an in-memory mailbox server for tests.
package tethboxtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/restan/tethbox/internal/tethbox"
)

const sessionCookie = "tethbox_session"

// Server fakes the mailbox API for a single browser session
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	style     tethbox.RouteStyle
	session   string
	account   *tethbox.Account
	messages  []tethbox.Message
	files     map[string][]byte
	hits      map[string]int
	forwarded map[string][]string
	seq       int

	// ForwardError, when set, makes every forward fail with a 400 carrying it
	ForwardError string
	// ExpireIn is the lifetime handed to new accounts
	ExpireIn int
}

// NewServer starts a fake server using the given route style
func NewServer(style tethbox.RouteStyle) *Server {
	s := &Server{
		style:     style,
		files:     make(map[string][]byte),
		hits:      make(map[string]int),
		forwarded: make(map[string][]string),
		ExpireIn:  600,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Account returns a copy of the live account, or nil
func (s *Server) Account() *tethbox.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return nil
	}
	acct := *s.account
	return &acct
}

// SetExpireIn overrides the live account countdown
func (s *Server) SetExpireIn(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account != nil {
		s.account.ExpireIn = seconds
	}
}

// AddMessage delivers a message (with detail) into the live inbox
func (s *Server) AddMessage(msg tethbox.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg.Clone())
}

// AddFile registers attachment content by key
func (s *Server) AddFile(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
}

// Expire drops the live account so the next poll answers 410
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
	s.messages = nil
}

// Hits returns how many requests reached path
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Forwarded returns the addresses a message was forwarded to
func (s *Server) Forwarded(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.forwarded[key]...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits[r.URL.Path]++
	routes := map[string]func(http.ResponseWriter, *http.Request){
		"/init":           s.handleInit,
		"/inbox":          s.handleInbox,
		"/newAccount":     s.handleNewAccount,
		"/extendTime":     s.handleExtendTime,
		"/account/init":   s.handleInit,
		"/account/inbox":  s.handleInbox,
		"/account/new":    s.handleNewAccount,
		"/account/extend": s.handleExtendTime,
	}
	if h, ok := routes[r.URL.Path]; ok && r.Method == http.MethodGet && s.routeAllowed(r.URL.Path) {
		h(w, r)
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/message/") && strings.HasSuffix(r.URL.Path, "/forward") && r.Method == http.MethodPost:
		key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/message/"), "/forward")
		s.handleForward(w, r, key)
	case strings.HasPrefix(r.URL.Path, "/message/") && r.Method == http.MethodGet:
		s.handleMessage(w, r, strings.TrimPrefix(r.URL.Path, "/message/"))
	case strings.HasPrefix(r.URL.Path, "/attachment/") && r.Method == http.MethodGet:
		s.handleAttachment(w, r, strings.TrimPrefix(r.URL.Path, "/attachment/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) routeAllowed(path string) bool {
	isAccountStyle := strings.HasPrefix(path, "/account/")
	return isAccountStyle == (s.style == tethbox.RoutesAccount)
}

func (s *Server) authorized(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && s.session != "" && c.Value == s.session && s.account != nil
}

func (s *Server) createAccount(w http.ResponseWriter) {
	s.seq++
	s.session = fmt.Sprintf("session-%d", s.seq)
	s.account = &tethbox.Account{Email: fmt.Sprintf("box%d@tethbox.test", s.seq), ExpireIn: s.ExpireIn}
	s.messages = nil
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: s.session, Path: "/"})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.createAccount(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": s.account})
}

func (s *Server) handleNewAccount(w http.ResponseWriter, r *http.Request) {
	s.createAccount(w)
	writeJSON(w, http.StatusOK, map[string]any{"account": s.account})
}

func (s *Server) handleExtendTime(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	s.account.ExpireIn = s.ExpireIn
	writeJSON(w, http.StatusOK, map[string]any{"account": s.account})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusGone)
		return
	}
	summaries := make([]map[string]any, 0, len(s.messages))
	for _, m := range s.messages {
		summaries = append(summaries, map[string]any{
			"key":            m.Key,
			"sender_name":    m.SenderName,
			"sender_address": m.SenderAddress,
			"subject":        m.Subject,
			"date":           m.Date,
			"read":           m.Read,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": s.account, "messages": summaries})
}

func (s *Server) find(key string) int {
	for i := range s.messages {
		if s.messages[i].Key == key {
			return i
		}
	}
	return -1
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, key string) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	i := s.find(key)
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	s.messages[i].Read = true
	writeJSON(w, http.StatusOK, map[string]any{"message": s.messages[i]})
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request, key string) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if s.find(key) < 0 {
		http.NotFound(w, r)
		return
	}
	if s.ForwardError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": s.ForwardError})
		return
	}
	address := r.FormValue("address")
	if !strings.Contains(address, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid email address."})
		return
	}
	s.forwarded[key] = append(s.forwarded[key], address)
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request, key string) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	data, ok := s.files[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
