package main

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lessonplanner"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

const sessionName = "lessonplanner-session"

// Server holds the shared state behind the HTTP handlers
type Server struct {
	generator *lessonplanner.LessonGenerator
	backend   *lessonplanner.Backend
	library   *lessonplanner.Library
	sessions  sessions.Store
	now       func() time.Time

	mu      sync.RWMutex
	batches map[string]*batchJob
}

// Notification is a one-shot message shown to the teacher
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func init() {
	gob.Register(Notification{})
}

// NewServer wires the handlers to a backend, a library and a session store
func NewServer(backend *lessonplanner.Backend, library *lessonplanner.Library, store sessions.Store) *Server {
	return &Server{
		generator: lessonplanner.NewLessonGeneratorFromBackend(backend),
		backend:   backend,
		library:   library,
		sessions:  store,
		now:       time.Now,
		batches:   make(map[string]*batchJob),
	}
}

func main() {
	cfg, err := lessonplanner.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	lessonplanner.SetVerbose(cfg.Log.Verbose)

	backend, err := cfg.OpenBackend()
	if err != nil {
		logrus.Fatalf("Failed to create backend: %v", err)
	}
	if llmLog, err := lessonplanner.NewLLMLogger(cfg.Log.LLMDir, "", lessonplanner.UserInput{}); err != nil {
		logrus.Warnf("LLM transcript disabled: %v", err)
	} else {
		defer llmLog.Close()
		backend.SetLogger(llmLog)
	}

	ctx := context.Background()
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	library, err := lessonplanner.OpenLibrary(ctx, store)
	if err != nil {
		logrus.Fatalf("Failed to open library: %v", err)
	}

	cookies := sessions.NewCookieStore([]byte(cfg.Server.SessionSecret))
	cookies.Options.HttpOnly = true

	server := NewServer(backend, library, cookies)
	router := server.Router()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}
	logrus.Info("Server stopped")
}

// Router builds the gin engine with every API route
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/notifications", s.handleNotifications)

	api.GET("/plans", s.handleListPlans)
	api.POST("/plans", s.handleSavePlan)
	api.POST("/plans/generate", s.handleGeneratePlan)
	api.GET("/plans/:id", s.handleGetPlan)
	api.PUT("/plans/:id", s.handleUpdatePlan)
	api.DELETE("/plans/:id", s.handleDeletePlan)
	api.POST("/plans/:id/image", s.handlePlanImage)
	api.POST("/plans/:id/collection", s.handleMoveToCollection)

	api.GET("/collections", s.handleListCollections)
	api.POST("/collections", s.handleCreateCollection)
	api.GET("/library", s.handleLibrary)

	api.POST("/slides/outline", s.handleOutline)
	api.POST("/slides/deck", s.handleDeck)
	api.POST("/exercises", s.handleExercises)
	api.POST("/exercises/worksheet", s.handleWorksheet)

	api.POST("/batches", s.handleCreateBatch)
	api.GET("/batches/:id", s.handleGetBatch)
	api.PUT("/batches/:id/items/:index", s.handleUpdateBatchItem)
	api.POST("/batches/:id/run", s.handleRunBatch)
	api.GET("/batches/:id/archive", s.handleBatchArchive)

	return router
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{"ready": true}
	if reason := s.backend.Disabled(); reason != nil {
		status["ready"] = false
		status["warning"] = reason.Error()
	}
	c.JSON(http.StatusOK, status)
}

// notify queues a flash message on the caller's session
func (s *Server) notify(c *gin.Context, level, message string) {
	session, err := s.sessions.Get(c.Request, sessionName)
	if err != nil {
		logrus.Debugf("Starting a new session: %v", err)
	}
	session.AddFlash(Notification{Level: level, Message: message})
	if err := session.Save(c.Request, c.Writer); err != nil {
		logrus.Warnf("Failed to save session: %v", err)
	}
}

func (s *Server) handleNotifications(c *gin.Context) {
	session, err := s.sessions.Get(c.Request, sessionName)
	if err != nil {
		logrus.Debugf("Starting a new session: %v", err)
	}
	notifications := []Notification{}
	for _, flash := range session.Flashes() {
		if n, ok := flash.(Notification); ok {
			notifications = append(notifications, n)
		}
	}
	if err := session.Save(c.Request, c.Writer); err != nil {
		logrus.Warnf("Failed to save session: %v", err)
	}
	c.JSON(http.StatusOK, notifications)
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, lessonplanner.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, lessonplanner.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lessonplanner.ErrEmptyResponse), errors.Is(err, lessonplanner.ErrSchemaViolation):
		return http.StatusBadGateway
	case errors.Is(err, lessonplanner.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail converts an error into a JSON body and an error notification
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	}
	s.notify(c, "error", err.Error())
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.notify(c, "error", "Invalid request: "+err.Error())
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
}

func sendArtifact(c *gin.Context, artifact *lessonplanner.Artifact) {
	c.Header("Content-Disposition", contentDisposition(artifact.Filename))
	c.Data(http.StatusOK, artifact.MimeType, artifact.Data)
}
