package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"narrated-video-pipeline/pipeline"
	"narrated-video-pipeline/types"
)

// Runner executes one job
type Runner interface {
	Run(ctx context.Context, req *types.JobRequest) (*types.JobResult, error)
}

// Server exposes the pipeline over HTTP
type Server struct {
	runner  Runner
	timeout time.Duration
	router  *gin.Engine
}

// New creates a Server. timeout bounds each job; zero means no limit.
func New(runner Runner, timeout time.Duration) *Server {
	s := &Server{runner: runner, timeout: timeout}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API Ready!"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/generate-video", s.generateVideo)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	s.router = router
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) generateVideo(c *gin.Context) {
	var req types.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(pipeline.MissingInput) + ": invalid JSON body"})
		return
	}

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.runner.Run(ctx, &req)
	if err != nil {
		status, msg := classify(err)
		log.Printf("[server] ❌ /generate-video %d: %v", status, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, result)
}

// classify maps a job error to an HTTP status and the message shown to callers
func classify(err error) (int, string) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError, "internal error"
	}
	switch perr.Kind {
	case pipeline.MissingInput:
		return http.StatusBadRequest, perr.Public()
	case pipeline.NoValidClips:
		if perr.Err == nil {
			// rejected before synthesis: every voiceText was blank
			return http.StatusBadRequest, perr.Public()
		}
		return http.StatusInternalServerError, perr.Public()
	case pipeline.DownloadFailure, pipeline.UploadFailure:
		return http.StatusBadGateway, perr.Public()
	default:
		return http.StatusInternalServerError, perr.Public()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
