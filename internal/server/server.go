// Package server exposes the renderers and the most recent export over
// HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/notesctl/internal/auth"
	"github.com/danmuck/notesctl/internal/config"
	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/notes"
	"github.com/danmuck/notesctl/internal/observability"
	"github.com/danmuck/notesctl/internal/render"
	"github.com/danmuck/notesctl/internal/sink"
	"github.com/danmuck/notesctl/internal/sink/memory"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	ServiceName = "notesctl"
	Version     = "0.1.0"
)

var ErrBodyTooLarge = errors.New("server: request body too large")

type Server struct {
	cfg     config.ServeConfig
	notes   *memory.Sink
	router  *gin.Engine
	started time.Time
}

// New builds the engine and registers every route. store may be nil, in
// which case the note listing is empty.
func New(cfg config.ServeConfig, store *memory.Sink, logger zerolog.Logger) *Server {
	observability.RegisterMetrics()
	if store == nil {
		store = memory.New()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(ServiceName))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Encoding", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{cfg: cfg, notes: store, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx ends, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln, over TLS when a certificate pair is
// configured. ln is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLSCert != "" {
			errCh <- srv.ServeTLS(ln, s.cfg.TLSCert, s.cfg.TLSKey)
			return
		}
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": ServiceName,
			"version": Version,
			"notes":   s.notes.Len(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	if s.cfg.Token != "" {
		v1.Use(auth.Require(auth.StaticToken{Token: s.cfg.Token}))
	}
	v1.POST("/render/note", s.renderNote)
	v1.POST("/render/drawing", s.renderAttachment(render.UTIDrawing))
	v1.POST("/render/table", s.renderAttachment(render.UTITable))
	v1.GET("/notes", s.listNotes)
	v1.GET("/notes/:id", s.getNote)
}

// readBlob reads the request body and inflates it when it carries a
// gzip or zlib header.
func (s *Server) readBlob(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrBodyTooLarge.Error()})
		return nil, false
	}
	if notes.IsCompressed(body) {
		body, err = notes.Decompress(body)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return nil, false
		}
	}
	return body, true
}

func (s *Server) renderNote(c *gin.Context) {
	body, ok := s.readBlob(c)
	if !ok {
		return
	}
	status := sink.StatusOK
	if len(body) == 0 {
		s.writeHTML(c, markup.Element("div"), status)
		return
	}
	root, err := render.Note(body, render.NewAttachmentMap(s.cfg.User))
	if err != nil {
		basic, found := render.Basic(body)
		if !found {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		root, status = basic, sink.StatusPartial
	}
	if c.Query("envelope") == "1" {
		root = render.Envelope(root, render.DefaultCSS)
	}
	s.writeHTML(c, root, status)
}

func (s *Server) renderAttachment(uti string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := s.readBlob(c)
		if !ok {
			return
		}
		m := render.NewAttachmentMap(s.cfg.User)
		node, _, err := m.Build(render.Attachment{ID: "request", TypeUTI: uti, Data: body})
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.writeHTML(c, node, sink.StatusOK)
	}
}

func (s *Server) writeHTML(c *gin.Context, n *markup.Node, status string) {
	out, err := markup.RenderString(n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Notes-Status", status)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

type noteSummary struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Folder   string    `json:"folder"`
	Snippet  string    `json:"snippet,omitempty"`
	Modified time.Time `json:"modified"`
	Status   string    `json:"status"`
}

func (s *Server) listNotes(c *gin.Context) {
	recs := s.notes.List(c.Query("folder"))
	out := make([]noteSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, noteSummary{
			ID:       rec.ID,
			Title:    rec.Title,
			Folder:   rec.Folder,
			Snippet:  rec.Snippet,
			Modified: rec.Modified,
			Status:   rec.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}

func (s *Server) getNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note id"})
		return
	}
	rec, ok := s.notes.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, rec)
		return
	}
	c.Header("X-Notes-Status", rec.Status)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rec.HTML))
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
