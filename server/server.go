package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/airchains-network/da-dispatcher/da"
	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/store"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Server exposes a DA client over HTTP
type Server struct {
	client   da.Client
	receipts *store.Receipts
	hub      *Hub
	log      *logrus.Logger
	router   *gin.Engine
}

// New creates the HTTP API. hub may be nil to disable the event feed.
func New(client da.Client, receipts *store.Receipts, hub *Hub, log *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{client: client, receipts: receipts, hub: hub, log: log}
	router := gin.New()
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %s - %s %s %d %s\n",
				param.TimeStamp.Format("2006-01-02 15:04:05"),
				param.Method,
				param.Path,
				param.StatusCode,
				param.Latency,
			)
		},
	}))
	router.Use(gin.Recovery())

	v1 := router.Group("/v1")
	v1.GET("/info", s.handleInfo)
	v1.POST("/blobs", s.handleDispatch)
	v1.GET("/blobs/:id/inclusion", s.handleInclusion)
	v1.GET("/receipts", s.handleListReceipts)
	v1.GET("/receipts/:id", s.handleReceipt)
	if hub != nil {
		v1.GET("/ws", hub.serveWS)
	}
	s.router = router
	return s
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Starting HTTP server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// statusOf maps a classified error onto an HTTP status
func statusOf(err error) int {
	switch {
	case errors.Is(err, daerr.ErrInvalidBlobID):
		return http.StatusBadRequest
	case errors.Is(err, daerr.ErrBlobTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled):
		return 499
	case daerr.IsRetriable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	kind := daerr.Classify(err)
	c.JSON(statusOf(err), gin.H{"error": err.Error(), "kind": kind.String()})
}

func (s *Server) handleInfo(c *gin.Context) {
	info := gin.H{
		"backend":       s.client.Name(),
		"max_blob_size": s.client.MaxBlobSize(),
	}
	if s.hub != nil {
		info["ws_clients"] = s.hub.Clients()
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleDispatch(c *gin.Context) {
	var batch uint64
	if q := c.Query("batch"); q != "" {
		n, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch must be an unsigned integer"})
			return
		}
		batch = n
	}

	// Read one byte past the limit so oversized blobs are rejected by the pipeline.
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(s.client.MaxBlobSize())+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to read body: %v", err)})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty blob"})
		return
	}

	res, err := s.client.Dispatch(c.Request.Context(), batch, data)
	if err != nil {
		s.fail(c, err)
		return
	}

	if s.receipts != nil {
		r := store.Receipt{
			BlobID:      res.BlobID,
			Backend:     s.client.Name(),
			BatchNumber: batch,
			Size:        len(data),
			SubmittedAt: time.Now().UTC(),
		}
		if err := s.receipts.Save(r); err != nil {
			s.log.Errorf("Failed to save receipt for %s: %v", res.BlobID, err)
		}
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleInclusion(c *gin.Context) {
	data, err := s.client.GetInclusionData(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if data == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hexutil.Encode(data.Data)})
}

func (s *Server) handleReceipt(c *gin.Context) {
	if s.receipts == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipts are disabled"})
		return
	}
	r, err := s.receipts.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleListReceipts(c *gin.Context) {
	if s.receipts == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipts are disabled"})
		return
	}
	limit := 100
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	receipts, err := s.receipts.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, receipts)
}
