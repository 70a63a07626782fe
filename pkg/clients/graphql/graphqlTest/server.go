// Package graphqlTest provides an in-process fake of the VSC node GraphQL API.
package graphqlTest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type Submission struct {
	Tx  string
	Sig string
}

// Reply overrides the fake's answer. Body is written verbatim.
type Reply struct {
	Status int
	Body   string
}

type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	nonce       uint64
	nonceCalls  int
	keyGroups   []string
	submissions []Submission
	submitReply *Reply
	nonceReply  *Reply
}

// NewServer starts a fake node whose account nonce is nonce. It is closed
// when the test ends.
func NewServer(t *testing.T, nonce uint64) *Server {
	t.Helper()
	s := &Server{nonce: nonce}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) Endpoint() string {
	return s.srv.URL + "/api/v1/graphql"
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) SetSubmitReply(r *Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitReply = r
}

func (s *Server) SetNonceReply(r *Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonceReply = r
}

func (s *Server) NonceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonceCalls
}

func (s *Server) KeyGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keyGroups...)
}

func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// TotalCalls counts every request the fake has answered.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonceCalls + len(s.submissions)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string          `json:"query"`
		Variables json.RawMessage `json:"variables"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(req.Query, "getAccountNonce"):
		var vars struct {
			KeyGroup []string `json:"keyGroup"`
		}
		_ = json.Unmarshal(req.Variables, &vars)
		s.nonceCalls++
		s.keyGroups = append(s.keyGroups, vars.KeyGroup...)
		if s.nonceReply != nil {
			write(w, s.nonceReply)
			return
		}
		write(w, &Reply{Body: fmt.Sprintf(`{"data":{"getAccountNonce":{"nonce":%d}}}`, s.nonce)})
	case strings.Contains(req.Query, "submitTransactionV1"):
		var vars struct {
			Tx  string `json:"tx"`
			Sig string `json:"sig"`
		}
		_ = json.Unmarshal(req.Variables, &vars)
		s.submissions = append(s.submissions, Submission{Tx: vars.Tx, Sig: vars.Sig})
		if s.submitReply != nil {
			write(w, s.submitReply)
			return
		}
		write(w, &Reply{Body: fmt.Sprintf(`{"data":{"submitTransactionV1":{"id":"tx-%d"}}}`, len(s.submissions))})
	default:
		write(w, &Reply{Body: `{"errors":[{"message":"unknown query"}]}`})
	}
}

func write(w http.ResponseWriter, r *Reply) {
	w.Header().Set("Content-Type", "application/json")
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(r.Body))
}
