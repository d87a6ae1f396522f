package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"skillsched/internal/config"
	"skillsched/internal/ics"
	appLog "skillsched/internal/log"
	"skillsched/internal/model"
	"skillsched/internal/recurrence"
	"skillsched/internal/schedule"
	"skillsched/internal/store"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Store is the part of the action store the API needs.
type Store interface {
	List() []schedule.ScheduledAction
	Get(id string) (schedule.ScheduledAction, error)
	Put(a schedule.ScheduledAction) (schedule.ScheduledAction, error)
	Delete(id string) error
}

// Options carry the optional collaborators of a Server.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// NextRun reports when the runner will next fire an action.
	NextRun func(id string) (time.Time, bool)
}

// Server provides the HTTP API for scheduled actions and recurrences.
type Server struct {
	cfg      *config.Config
	store    Store
	channels []schedule.ScheduleChannel
	skills   []schedule.BehaviorGroup
	triggers []schedule.Trigger
	now      func() time.Time
	nextRun  func(id string) (time.Time, bool)
	validate *validator.Validate
	router   chi.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st Store, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		cfg:      cfg,
		store:    st,
		channels: cfg.ScheduleChannels(),
		skills:   cfg.BehaviorGroups(),
		triggers: cfg.Triggers(),
		now:      opts.Now,
		nextRun:  opts.NextRun,
		validate: validator.New(),
		router:   chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the router, wrapped in Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="skillsched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is done, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, st Store, opts Options) error {
	s := NewServer(cfg, st, opts)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/scheduled-actions", func(r chi.Router) {
			r.Get("/", s.handleListActions)
			r.Post("/", s.handleSaveAction)
			r.Get("/{id}", s.handleGetAction)
			r.Delete("/{id}", s.handleDeleteAction)
		})
		r.Post("/recurrences/validate", s.handleValidateRecurrence)
		r.Get("/occurrences", s.handleOccurrences)
		r.Get("/calendar.ics", s.handleCalendar)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type groupsResponse struct {
	Groups []schedule.Group `json:"groups"`
}

// handleListActions returns actions grouped by channel.
//
// GET /api/scheduled-actions?channel=C1&behaviorGroupId=bg1
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := s.now()

	channel := q.Get("channel")
	actions := s.store.List()
	if channel != "" {
		actions = slices.DeleteFunc(actions, func(a schedule.ScheduledAction) bool { return a.Channel != channel })
	}
	for i, a := range actions {
		actions[i] = a.WithComputedRecurrences(now)
	}
	groups := schedule.GroupByChannel(actions, s.channels, schedule.Filter{
		ChannelID:       channel,
		BehaviorGroupID: q.Get("behaviorGroupId"),
		BehaviorGroups:  s.skills,
		Triggers:        s.triggers,
	})
	writeJSON(w, http.StatusOK, groupsResponse{Groups: groups})
}

type actionResponse struct {
	Action   schedule.ScheduledAction `json:"action"`
	Validity schedule.Validity        `json:"validity"`
	// Description reads like "Every weekday at 9:00 AM in the channel #general".
	Description string     `json:"description"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
}

func (s *Server) actionResponse(a schedule.ScheduledAction) actionResponse {
	a = a.WithComputedRecurrences(s.now())
	where := "channel " + a.Channel
	if c, ok := schedule.FindChannel(s.channels, a.Channel); ok {
		where = c.Description()
	}
	resp := actionResponse{
		Action:      a,
		Validity:    a.Validity(),
		Description: a.Recurrence.Describe() + " in " + where,
	}
	if s.nextRun != nil {
		if t, ok := s.nextRun(a.ID); ok {
			resp.NextRun = &t
		}
	}
	return resp
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.actionResponse(a))
}

type invalidResponse struct {
	Error    string            `json:"error"`
	Validity schedule.Validity `json:"validity"`
}

// handleSaveAction creates an action without an id and updates one with.
func (s *Server) handleSaveAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	a, err := schedule.FromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !a.IsValid() {
		writeJSON(w, http.StatusUnprocessableEntity, invalidResponse{
			Error:    "scheduled action is invalid",
			Validity: a.Validity(),
		})
		return
	}

	created := a.IsNew()
	saved, err := s.store.Put(a)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	appLog.Info("scheduled action saved", "id", saved.ID, "created", created)
	writeJSON(w, status, s.actionResponse(saved))
}

func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	appLog.Info("scheduled action deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "scheduled action not found")
	case errors.Is(err, store.ErrInvalidAction):
		writeError(w, http.StatusUnprocessableEntity, "scheduled action is invalid")
	default:
		appLog.Error("store operation failed", err)
		writeError(w, http.StatusInternalServerError, "store failure")
	}
}

type validateRequest struct {
	Recurrence json.RawMessage `json:"recurrence" validate:"required"`
	// Count defaults to the configured preview count.
	Count int        `json:"count" validate:"omitempty,min=1,max=50"`
	After *time.Time `json:"after"`
}

type validateResponse struct {
	Validity        recurrence.Validity `json:"validity"`
	Description     string              `json:"description"`
	RemainingRuns   string              `json:"remainingRuns,omitempty"`
	RRule           string              `json:"rrule,omitempty"`
	CronSpec        string              `json:"cronSpec,omitempty"`
	NextOccurrences []time.Time         `json:"nextOccurrences"`
}

// handleValidateRecurrence checks a recurrence being edited and previews it.
//
// POST /api/recurrences/validate {"recurrence": {...}, "count": 5}
func (s *Server) handleValidateRecurrence(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := recurrence.Parse(req.Recurrence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count := req.Count
	if count == 0 {
		count = s.cfg.PreviewCount
	}
	after := s.now()
	if req.After != nil {
		after = *req.After
	}

	resp := validateResponse{
		Validity:        rec.Validity(),
		Description:     rec.Describe(),
		NextOccurrences: []time.Time{},
	}
	if rec.HasLimitedRuns() {
		resp.RemainingRuns = rec.TimesRemainingText()
	}
	if rec.IsValid() {
		if rule, err := rec.RRuleString(); err == nil {
			resp.RRule = rule
		}
		if spec, err := rec.CronSpec(); err == nil {
			resp.CronSpec = spec
		}
		times, err := rec.NextOccurrences(after, count)
		if err != nil {
			appLog.Error("preview occurrences failed", err)
		}
		if len(times) > 0 {
			resp.NextOccurrences = times
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type occurrencesResponse struct {
	Occurrences      []model.Occurrence `json:"occurrences"`
	TruncatedActions []string           `json:"truncatedActions,omitempty"`
	RangeStart       time.Time          `json:"rangeStart"`
	RangeEnd         time.Time          `json:"rangeEnd"`
	DisplayTimeZone  string             `json:"displayTimeZone"`
}

// handleOccurrences lists the runs of every action in a window.
//
// GET /api/occurrences?days=7
//   - days: how many days ahead to list (default 7, at most 92)
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	if days > 92 {
		days = 92
	}

	loc := resolveLocationOrLocal(s.cfg.Timezone)
	rangeStart := s.now().In(loc)
	rangeEnd := rangeStart.AddDate(0, 0, days)

	res, err := schedule.Expand(s.store.List(), schedule.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		appLog.Error("expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand scheduled actions")
		return
	}
	occ := res.Occurrences
	if occ == nil {
		occ = []model.Occurrence{}
	}
	writeJSON(w, http.StatusOK, occurrencesResponse{
		Occurrences:      occ,
		TruncatedActions: res.TruncatedActions,
		RangeStart:       rangeStart,
		RangeEnd:         rangeEnd,
		DisplayTimeZone:  loc.String(),
	})
}

// handleCalendar exports every action as an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="scheduled-actions.ics"`)
	if err := ics.WriteCalendar(w, s.store.List(), s.channels, s.now()); err != nil {
		appLog.Error("calendar export failed", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
