/*
Package backendtest is an in-process stand-in for the hosted backend platform.

It serves the surfaces the client consumes (auth endpoints, the REST-like
query layer, and the realtime websocket) on top of in-memory state,
so every package can test against a real HTTP boundary without the hosted
platform. It mimics behavior, not scale: rows live in maps and slices behind
one mutex.
*/
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"supachat/internal/app/user"
	"supachat/internal/configs"
	"supachat/internal/pkg/limiter"
	"supachat/internal/pkg/logx"
)

const (
	// AnonKey is the project API key the stand-in accepts.
	AnonKey = "backendtest-anon-key"

	// jwtSecret signs the access tokens this stand-in issues.
	jwtSecret = "backendtest-jwt-secret"

	// AuthRate and AuthBurst throttle the auth endpoints per client IP,
	// mirroring how the hosted platform limits credential attempts. The
	// budget is generous so tests never trip it accidentally.
	AuthRate  = 50
	AuthBurst = 100

	// httptestTimeout bounds client REST calls in ClientConfig.
	httptestTimeout = 10 * time.Second
)

// account is one stored credential record.
type account struct {
	ID           string
	Email        string
	PasswordHash []byte
	Metadata     map[string]any
}

// Server is the in-process backend stand-in.
type Server struct {
	hub        *feedHub
	httpServer *httptest.Server
	logger     zerolog.Logger

	mu                    sync.Mutex
	accountsByEml         map[string]*account
	accountsByID          map[string]*account
	profiles              map[string]user.Profile
	messages              []user.Message
	nextMessageID         int64
	failNextProfileInsert bool
	failNextProfileSelect bool
}

// NewServer starts a stand-in backend on a random local port.
// Callers must Close it when done.
func NewServer() *Server {
	s := &Server{
		hub:           newFeedHub(),
		logger:        logx.Logger().With().Str("component", "backendtest").Logger(),
		accountsByEml: make(map[string]*account),
		accountsByID:  make(map[string]*account),
		profiles:      make(map[string]user.Profile),
	}

	s.httpServer = httptest.NewServer(s.router())

	return s
}

// URL returns the base URL of the running stand-in.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// ClientConfig returns an AppConfig pointing the backend client at this server.
func (s *Server) ClientConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:  "test",
		BackendURL:   s.URL(),
		AnonKey:      AnonKey,
		RealtimePath: "/realtime/v1/websocket",
		HTTPTimeout:  httptestTimeout,
	}
}

// Close shuts down the hub and the HTTP server.
func (s *Server) Close() {
	s.hub.shutdown()
	s.httpServer.Close()
}

// router builds the chi routing table: CORS, request logging, the auth
// endpoints behind a per-IP rate limiter, the REST query layer, and the
// realtime websocket endpoint.
func (s *Server) router() http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "apikey", "Prefer"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r := chi.NewRouter()

	r.Use(c.Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(s.requireAPIKey)

	r.Route("/auth/v1", func(auth chi.Router) {
		auth.Use(authLimiter.Middleware)

		auth.Post("/signup", s.handleSignUp)
		auth.Post("/token", s.handleToken)
		auth.Post("/logout", s.handleLogout)
		auth.Get("/user", s.handleCurrentUser)
	})

	r.Route("/rest/v1", func(rest chi.Router) {
		rest.Get("/profiles", s.handleSelectProfiles)
		rest.Post("/profiles", s.handleInsertProfiles)
		rest.Get("/messages", s.handleSelectMessages)
		rest.Post("/messages", s.handleInsertMessages)
	})

	r.Get("/realtime/v1/websocket", s.handleRealtime)

	return r
}

// requireAPIKey rejects requests that do not present the project API key,
// either as a header (REST, auth) or a query parameter (websocket dial).
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("apikey")
		if key == "" {
			key = r.URL.Query().Get("apikey")
		}

		if key != AnonKey {
			respondError(w, http.StatusUnauthorized, "No valid API key provided")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleRealtime upgrades the connection and registers the subscriber with
// the feed hub once its subscribe frame arrives.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade realtime connection")
		return
	}

	var subscribeMsg wireFrame
	if err := conn.ReadJSON(&subscribeMsg); err != nil || subscribeMsg.Type != "subscribe" || subscribeMsg.Table == "" {
		s.logger.Warn().Err(err).Msg("Realtime client did not send a valid subscribe frame")
		conn.Close()
		return
	}

	sub := &subscriber{
		conn:   conn,
		table:  subscribeMsg.Table,
		send:   make(chan []byte, subscriberQueueSize),
		logger: s.logger.With().Str("table", subscribeMsg.Table).Logger(),
	}

	go sub.writePump()

	// Register before acking: an insert performed after the client sees the
	// ack must reach this subscriber. A stopped hub no longer drains the
	// register channel, so select on its stop signal instead of blocking.
	select {
	case s.hub.register <- sub:
	case <-s.hub.stop:
		close(sub.send)
		return
	}

	ack := wireFrame{Type: "subscribed", Table: subscribeMsg.Table}
	ackBytes, _ := json.Marshal(ack)
	sub.send <- ackBytes

	sub.readPump(s.hub)
}

// respondJSON writes a JSON payload with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	encoded, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", status)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	w.Write(encoded)
}

// respondError writes the backend's JSON error shape.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
