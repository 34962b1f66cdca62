package server

import (
	"bytes"
	"embed"
	"io"
	"io/fs"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/aggregator"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/decode"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/hub"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/output"
)

//go:embed all:web
var webFS embed.FS

// Server holds the Gin engine and dependencies for the web dashboard.
type Server struct {
	engine     *gin.Engine
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	opts       decode.Options
	port       string
}

// New creates a web server for the decoder dashboard.
func New(h *hub.Hub, agg *aggregator.Aggregator, opts decode.Options, port string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:     engine,
		hub:        h,
		aggregator: agg,
		opts:       opts,
		port:       port,
	}

	s.setupRoutes()
	return s
}

// serveEmbedded reads a file from the embedded FS and writes it with the
// given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	webContent, _ := fs.Sub(webFS, "web")

	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.aggregator.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"uptime":        stats.Uptime,
			"files_decoded": stats.FilesDecoded,
			"total_entries": stats.TotalEntries,
			"dropped":       stats.DroppedEvents,
		})
	})

	// Metrics API.
	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.aggregator.Snapshot())
	})

	// Upload-and-decode: multipart dump in, text report out.
	s.engine.POST("/api/decode", s.handleDecode)

	// WebSocket entry stream.
	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// handleDecode accepts an uploaded dump, decodes it, and returns the
// canonical text report. Decoding is in-memory only; nothing is stored.
func (s *Server) handleDecode(c *gin.Context) {
	file, header, err := c.Request.FormFile("dump")
	if err != nil {
		c.String(http.StatusBadRequest, "missing multipart field %q", "dump")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.String(http.StatusBadRequest, "read upload: %v", err)
		return
	}

	opts := s.opts
	opts.Source = header.Filename
	report, err := decode.File(data, opts)
	if err != nil {
		c.String(http.StatusUnprocessableEntity, "decode: %v", err)
		return
	}
	s.aggregator.RecordReport(report)

	switch c.Query("format") {
	case "json":
		c.JSON(http.StatusOK, report)
	default:
		var buf bytes.Buffer
		if err := output.NewTextRenderer(&buf, false).Render(report); err != nil {
			c.String(http.StatusInternalServerError, "render: %v", err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	}
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	return s.engine.Run(":" + s.port)
}
