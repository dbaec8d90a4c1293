package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"haru/internal/model"
	"haru/internal/storage"
	"haru/internal/weather"
)

// Server is the REST facade translating HTTP verbs to key-value operations.
// It assigns record ids and timestamps; the store underneath enforces nothing.
type Server struct {
	store   storage.Store
	forecap *weather.Client
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Server.
type Option func(*Server)

// WithWeather wires the forecast proxy under /api/forecast.
func WithWeather(c *weather.Client) Option {
	return func(s *Server) { s.forecap = c }
}

// WithLogger overrides the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source (used by tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Server) {
		if fn != nil {
			s.now = fn
		}
	}
}

func New(store storage.Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: log.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/todos", s.handleList)
	mux.HandleFunc("POST /api/todos", s.handleCreate)
	mux.HandleFunc("PUT /api/todos/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/todos/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/context", s.handleContext)
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

type createRequest struct {
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	todo, err := model.New(s.newID(), req.Title, req.Completed, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Clients may carry their own creation time so optimistic ordering
	// survives the round trip; the id and updatedAt stay server-owned.
	if !req.CreatedAt.IsZero() {
		todo.CreatedAt = req.CreatedAt.UTC()
	}
	if err := s.store.Put(r.Context(), todo); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch model.Patch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := s.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	merged, err := todo.Apply(patch, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Put(r.Context(), merged); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	// Idempotent: removing an absent record still reports success.
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleContext is the data-loading hook: locale and timezone derived from
// request headers, consumed once per navigation alongside the list fetch.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	locale := "en-US"
	if al := r.Header.Get("Accept-Language"); al != "" {
		first := strings.TrimSpace(strings.Split(al, ",")[0])
		if idx := strings.Index(first, ";"); idx >= 0 {
			first = first[:idx]
		}
		if first != "" {
			locale = first
		}
	}
	timezone := r.Header.Get("X-Timezone")
	if timezone == "" {
		timezone = "UTC"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"locale":   locale,
		"timezone": timezone,
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if s.forecap == nil {
		writeError(w, http.StatusNotImplemented, "forecast not configured")
		return
	}
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	fc, err := s.forecap.Forecast(r.Context(), lat, lon)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
