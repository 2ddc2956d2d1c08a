package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"absensi/internal/httpmiddleware"
	"absensi/internal/metrics"
	"absensi/internal/response"
)

// RouterConfig carries the filesystem and size settings the router needs.
type RouterConfig struct {
	PublicDir      string
	UploadDir      string
	ModelsDir      string
	CORSOrigins    []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// NewRouter wires the middleware stack, the API routes and the static files.
func NewRouter(cfg RouterConfig, h *Handler, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.Use(
		httpmiddleware.RequestID(),
		httpmiddleware.Logger(m, "/healthz", "/metrics"),
		httpmiddleware.Recovery(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		httpmiddleware.SecurityHeaders(),
		httpmiddleware.BodyLimit(cfg.MaxBodyBytes),
		httpmiddleware.ErrorEnvelope(),
	)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		u := api.Group("/users")
		u.GET("", h.ListUsers)
		u.GET("/:username", h.GetUser)
		u.POST("", imageUpload(cfg.MaxUploadBytes), h.CreateUser)
		u.PUT("/:id", imageUpload(cfg.MaxUploadBytes), h.UpdateUser)
		u.DELETE("/:id", h.DeleteUser)

		a := api.Group("/absensi")
		a.GET("", h.ListAttendance)
		a.POST("", h.SubmitAttendance)
		a.DELETE("/:id", h.DeleteAttendance)
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	index := page(filepath.Join(cfg.PublicDir, "index.html"))
	r.GET("/", index)
	r.GET("/index.html", index)
	r.GET("/dashboard.html", page(filepath.Join(cfg.PublicDir, "dashboard.html")))
	r.Static("/uploads", cfg.UploadDir)
	r.Static("/models", cfg.ModelsDir)

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "route not found")
	})
	return r
}

// page serves a single file without http.ServeFile's index.html redirect.
func page(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := os.Open(path)
		if err != nil {
			response.Fail(c, http.StatusNotFound, "page not found")
			return
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil || st.IsDir() {
			response.Fail(c, http.StatusNotFound, "page not found")
			return
		}
		http.ServeContent(c.Writer, c.Request, st.Name(), st.ModTime(), f)
	}
}
