package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPort   = 9295
	defaultJobKey = "private-key"
	maxLogs       = 1000
)

type job struct {
	id      string
	spec    map[string]any
	created int64
	polls   int
	aborted bool
}

// Server is a fake blitz testing service
type Server struct {
	config     *Config
	httpServer *http.Server
	router     *gin.Engine
	logger     *slog.Logger

	mu          sync.RWMutex
	jobs        map[string]*job
	submissions []Submission
	aborts      []string
	logs        []RequestLog
	notifyCh    chan RequestLog
}

// NewServer creates a new fake service
func NewServer(config *Config, logger *slog.Logger) *Server {
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.JobKey == "" {
		config.JobKey = defaultJobKey
	}
	if len(config.Statuses) == 0 {
		config.Statuses = []string{"running", "completed"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		logger:   logger,
		jobs:     make(map[string]*job),
		notifyCh: make(chan RequestLog, 100),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if s.config.Logging {
		r.Use(s.recordRequest)
	}

	r.GET("/login/api", s.handleLogin)
	r.POST("/api/1/curl/execute", s.requireJobKey, s.handleExecute)
	r.GET("/api/1/jobs/:id/status", s.requireJobKey, s.handleStatus)
	r.PUT("/api/1/jobs/:id/abort", s.requireJobKey, s.handleAbort)
	return r
}

// Handler exposes the router, for httptest servers
func (s *Server) Handler() http.Handler { return s.router }

// Start starts serving in the background
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("fake service stopped", "error", err)
		}
	}()

	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the base URL of the server
func (s *Server) Address() string {
	return "http://" + net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

func (s *Server) handleLogin(c *gin.Context) {
	if e := s.config.LoginError; e != nil {
		c.JSON(http.StatusUnauthorized, e)
		return
	}
	if s.config.Username != "" && c.GetHeader("X-API-User") != s.config.Username {
		c.JSON(http.StatusUnauthorized, ErrorDoc{Code: "login", Reason: "unknown user"})
		return
	}
	if s.config.APIKey != "" && c.GetHeader("X-API-Key") != s.config.APIKey {
		c.JSON(http.StatusUnauthorized, ErrorDoc{Code: "login", Reason: "invalid api key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "api_key": s.config.JobKey})
}

// requireJobKey rejects calls that do not carry the key handed out at login
func (s *Server) requireJobKey(c *gin.Context) {
	if c.GetHeader("X-API-Key") != s.config.JobKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorDoc{Code: "login", Reason: "invalid job key"})
		return
	}
	c.Next()
}

func (s *Server) handleExecute(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorDoc{Code: "validation", Reason: err.Error()})
		return
	}
	sub := Submission{Key: c.GetHeader("X-API-Key"), Body: string(body)}

	if e := s.config.SubmitError; e != nil {
		s.addSubmission(sub)
		c.JSON(http.StatusTooManyRequests, e)
		return
	}

	var spec map[string]any
	if err := json.Unmarshal(body, &spec); err != nil {
		s.addSubmission(sub)
		c.JSON(http.StatusBadRequest, ErrorDoc{Code: "validation", Reason: "invalid JSON body"})
		return
	}
	if steps, _ := spec["steps"].([]any); len(steps) == 0 {
		s.addSubmission(sub)
		c.JSON(http.StatusBadRequest, ErrorDoc{Code: "validation", Reason: "At least one step is required"})
		return
	}

	j := &job{id: uuid.NewString(), spec: spec, created: time.Now().Unix()}
	sub.JobID = j.id

	s.mu.Lock()
	s.jobs[j.id] = j
	s.submissions = append(s.submissions, sub)
	s.mu.Unlock()

	region := s.config.Region
	if r, ok := spec["region"].(string); ok && r != "" {
		region = r
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "queued", "region": region, "job_id": j.id})
}

func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, ErrorDoc{Code: "not_found", Reason: "no such job " + id})
		return
	}
	j.polls++
	n := j.polls
	aborted := j.aborted
	s.mu.Unlock()

	if e := s.config.StatusError; e != nil {
		c.JSON(http.StatusOK, e)
		return
	}

	status := pick(s.config.Statuses, n)
	if aborted {
		status = "completed"
	}

	region := s.config.Region
	if r, ok := j.spec["region"].(string); ok && r != "" {
		region = r
	}
	var res map[string]any
	if len(s.config.Results) > 0 {
		res = pick(s.config.Results, n)
	} else {
		res = synthesize(j.spec, region, j.created, n)
	}

	c.JSON(http.StatusOK, gin.H{"_id": id, "ok": true, "status": status, "result": res})
}

func (s *Server) handleAbort(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		j.aborted = true
		s.aborts = append(s.aborts, id)
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, ErrorDoc{Code: "not_found", Reason: "no such job " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"_id": id, "ok": true})
}

// pick returns the nth (1-based) entry, repeating the last one
func pick[T any](items []T, n int) T {
	if n > len(items) {
		n = len(items)
	}
	return items[n-1]
}

func (s *Server) addSubmission(sub Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
}

// Submissions returns every submit call received, in order
func (s *Server) Submissions() []Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Submission(nil), s.submissions...)
}

// Aborts returns the job ids of every abort call received, in order
func (s *Server) Aborts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.aborts...)
}

// recordRequest is the request logging middleware
func (s *Server) recordRequest(c *gin.Context) {
	start := time.Now()
	c.Next()

	entry := RequestLog{
		Timestamp: start,
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Headers:   flattenHeaders(c.Request.Header),
		Status:    c.Writer.Status(),
		Duration:  time.Since(start),
	}
	s.logger.Debug("fake service request", "method", entry.Method, "path", entry.Path, "status", entry.Status)

	s.mu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
	s.mu.Unlock()

	select {
	case s.notifyCh <- entry:
	default:
	}
}

// NotifyChannel receives every logged request. Entries are dropped while
// nobody drains the channel and its buffer is full; GetLogs keeps them all.
func (s *Server) NotifyChannel() <-chan RequestLog {
	return s.notifyCh
}

// GetLogs returns all logged requests
func (s *Server) GetLogs() []RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// ClearLogs clears all logged requests
func (s *Server) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = make([]RequestLog, 0)
}

// flattenHeaders converts http.Header to map[string]string (first value only)
func flattenHeaders(headers http.Header) map[string]string {
	result := make(map[string]string)
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return result
}
