package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/webpeel/smartclient/client"
)

// FetchRequest is the JSON body for POST /fetch
type FetchRequest struct {
	URL             string `json:"url"`
	Fingerprint     string `json:"fingerprint"`
	Timeout         int    `json:"timeout"`
	FollowRedirects *bool  `json:"followRedirects"`
	MaxRedirects    int    `json:"maxRedirects"`
	Probe           *bool  `json:"probe"`
	ConfirmH2       bool   `json:"confirmH2"`
	Body            bool   `json:"body"`
	Decode          bool   `json:"decode"`
}

type server struct {
	token        string
	startTime    time.Time
	requestCount int64
	// baseOptions are applied before the per-request ones.
	baseOptions []client.Option
	shutdown    func(context.Context) error
	logger      log.Interface
}

func newServer(token string, logger log.Interface, options ...client.Option) *server {
	return &server{
		token:       token,
		startTime:   time.Now(),
		baseOptions: options,
		logger:      logger,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/fetch", s.authMiddleware(s.handleFetch))
	mux.HandleFunc("/health", s.authMiddleware(s.handleHealth))
	mux.HandleFunc("/shutdown", s.authMiddleware(s.handleShutdown))
	return mux
}

func (s *server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + s.token
		if auth != expected {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		atomic.AddInt64(&s.requestCount, 1)
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]interface{}{
		"status":   "ok",
		"version":  version,
		"uptime":   time.Since(s.startTime).Seconds(),
		"requests": atomic.LoadInt64(&s.requestCount),
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"shutting down"}`))
	if s.shutdown == nil {
		return
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		if err := s.shutdown(context.Background()); err != nil {
			s.logger.WithError(err).Error("shutdown failed")
		}
	}()
}

func (s *server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.URL == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "url is required"})
		return
	}

	json.NewEncoder(w).Encode(s.doFetch(r.Context(), req))
}

func (s *server) doFetch(ctx context.Context, req FetchRequest) FetchResponse {
	if req.Timeout <= 0 {
		req.Timeout = 30
	}
	if req.MaxRedirects <= 0 {
		req.MaxRedirects = 10
	}

	options := append([]client.Option{}, s.baseOptions...)
	options = append(options,
		client.WithLogger(s.logger),
		client.WithIdleTimeout(time.Duration(req.Timeout)*time.Second),
		client.WithMaxRedirects(req.MaxRedirects),
		client.WithConfirmH2(req.ConfirmH2),
	)
	if req.Fingerprint != "" {
		options = append(options, client.WithFingerprint(req.Fingerprint))
	}
	if req.FollowRedirects != nil {
		options = append(options, client.WithFollowRedirects(*req.FollowRedirects))
	}
	if req.Probe != nil {
		options = append(options, client.WithProbe(*req.Probe))
	}

	start := time.Now()
	res, err := client.New(options...).Fetch(ctx, req.URL)
	return buildReport(res, err, time.Since(start), reportOptions{Body: req.Body, Decode: req.Decode})
}
