// Package api provides the HTTP REST API server for AlphaGraph.
//
// It exposes endpoints for news analysis, recent analyses, trending
// companies, per-company summaries, demo data population, and WebSocket
// push updates.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alphagraph/alphagraph/internal/analysis"
	"github.com/alphagraph/alphagraph/internal/config"
	"github.com/alphagraph/alphagraph/internal/store"
	"github.com/alphagraph/alphagraph/pkg/models"
)

const (
	defaultRecentLimit = 20
	defaultCompanyDays = 7
	companyResultLimit = 50
	trendsWindow       = 24 * time.Hour
	trendsCompanyLimit = 10
	analyzeTimeout     = 2 * time.Minute
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	store    store.AnalysisStore
	analyzer *analysis.Analyzer
	wsHub    *WSHub
	now      func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, st store.AnalysisStore, analyzer *analysis.Analyzer) *Server {
	srv := &Server{
		cfg:      cfg,
		store:    st,
		analyzer: analyzer,
		wsHub:    NewWSHub(),
		now:      time.Now,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Get("/health", s.handleHealth)
		r.Get("/companies", s.handleCompanies)
		r.Get("/news/recent", s.handleRecentNews)
		r.Get("/trends", s.handleTrends)
		r.Get("/company/{symbol}", s.handleCompany)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/demo/populate", s.handlePopulate)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response Types
// ============================================================

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Headline string `json:"headline"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`
}

// CompanyResponse is the body of GET /api/company/{symbol}.
// Summary is a CompanySummary when analyses exist, or an explanatory
// string when none were found.
type CompanyResponse struct {
	Symbol   string                `json:"symbol"`
	Analyses []models.NewsAnalysis `json:"analyses"`
	Summary  interface{}           `json:"summary"`
}

// PopulateResponse is the body of POST /api/demo/populate.
type PopulateResponse struct {
	Message  string `json:"message"`
	Analyses int    `json:"analyses"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "AlphaGraph Financial Analysis API is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"llm_configured": s.cfg.LLM.GeminiKey != "" || s.cfg.LLM.OpenAIKey != "",
	})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"companies": models.DefaultTrackedCompanies,
	})
}

func (s *Server) handleRecentNews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRecentLimit)
	if limit < 1 {
		limit = defaultRecentLimit
	}

	analyses, err := s.store.RecentAnalyses(r.Context(), limit)
	if err != nil {
		log.Printf("api: recent analyses: %v", err)
		// Degrade to an empty feed rather than failing the dashboard.
		writeJSON(w, http.StatusOK, []models.NewsAnalysis{})
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	snapshot := models.TrendsSnapshot{
		TrendingCompanies: []models.TrendingCompany{},
		AnalysisPeriod:    "24h",
	}

	since := s.now().Add(-trendsWindow)
	trending, err := s.store.TrendingCompanies(r.Context(), since, trendsCompanyLimit)
	if err != nil {
		log.Printf("api: trending companies: %v", err)
		writeJSON(w, http.StatusOK, snapshot)
		return
	}
	total, err := s.store.CountAnalyses(r.Context())
	if err != nil {
		log.Printf("api: count analyses: %v", err)
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	snapshot.TrendingCompanies = trending
	snapshot.TotalAnalyses = total
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	days := queryInt(r, "days", defaultCompanyDays)
	if days < 1 {
		days = defaultCompanyDays
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	analyses, err := s.store.CompanyAnalyses(r.Context(), symbol, since, companyResultLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get company analysis: %v", err))
		return
	}

	if len(analyses) == 0 {
		writeJSON(w, http.StatusOK, CompanyResponse{
			Symbol:   symbol,
			Analyses: []models.NewsAnalysis{},
			Summary:  "No recent analysis found",
		})
		return
	}

	var sentimentSum, impactSum float64
	for _, a := range analyses {
		sentimentSum += a.SentimentScore
		impactSum += float64(a.ImpactScore)
	}
	avgSentiment := sentimentSum / float64(len(analyses))
	avgImpact := impactSum / float64(len(analyses))

	writeJSON(w, http.StatusOK, CompanyResponse{
		Symbol:   symbol,
		Analyses: analyses,
		Summary: models.CompanySummary{
			TotalMentions:      len(analyses),
			AvgSentimentScore:  round2(avgSentiment),
			AvgImpactScore:     round1(avgImpact),
			SentimentLabel:     models.LabelForScore(avgSentiment),
			AnalysisPeriodDays: days,
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Headline = strings.TrimSpace(req.Headline)
	req.Content = strings.TrimSpace(req.Content)
	if req.Headline == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "headline and content are required")
		return
	}
	if req.Source == "" {
		req.Source = "Manual Entry"
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, models.DraftArticle{
		Headline: req.Headline,
		Content:  req.Content,
		Source:   req.Source,
		URL:      req.URL,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	if err := s.store.SaveAnalysis(ctx, result); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save analysis: %v", err))
		return
	}

	// Broadcast to WebSocket clients
	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]interface{}{
			"id":              result.ID,
			"headline":        result.Headline,
			"sentiment_label": result.SentimentLabel,
		},
	})

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	analyses, err := s.analyzer.AnalyzeSamples(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to populate sample data: %v", err))
		return
	}
	for _, a := range analyses {
		if err := s.store.SaveAnalysis(ctx, a); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to populate sample data: %v", err))
			return
		}
	}

	writeJSON(w, http.StatusOK, PopulateResponse{
		Message:  fmt.Sprintf("Successfully populated %d sample analyses", len(analyses)),
		Analyses: len(analyses),
	})
}

// ============================================================
// Helpers
// ============================================================

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
