package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/semafind/semaknn/dataset"
)

type HttpApiConfig struct {
	Debug bool `yaml:"debug"`
	// HTTP Parameters
	HttpHost string `yaml:"httpHost"`
	HttpPort int    `yaml:"httpPort"`
	// Prometheus metrics are served on a separate port
	EnableMetrics   bool `yaml:"enableMetrics"`
	MetricsHttpPort int  `yaml:"metricsHttpPort"`
}

// ---------------------------

func pongHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong from semaknn",
	})
}

// ---------------------------

func setupRouter(handlers *KNNHandlers, metrics *httpMetrics) *gin.Engine {
	router := gin.New()
	router.Use(RequestIdMiddleware(), ZerologLogger(metrics), gin.Recovery())
	v1 := router.Group("/v1")
	v1.GET("/ping", pongHandler)
	// ---------------------------
	// Stateless kernel access, the caller provides both matrices
	v1.POST("/distances", handlers.ComputeDistances)
	// ---------------------------
	v1.GET("/datasets", handlers.ListDatasets)
	dsRoutes := v1.Group("/datasets/:name")
	dsRoutes.PUT("", handlers.PutDataset)
	dsRoutes.GET("", handlers.GetDataset)
	dsRoutes.DELETE("", handlers.DeleteDataset)
	dsRoutes.POST("/predict", handlers.Predict)
	return router
}

// RunHTTPServer starts the API and, if enabled, the metrics server in the
// background and returns the API server for shutdown.
func RunHTTPServer(cfg HttpApiConfig, store *dataset.Store, defaultK, workers int) *http.Server {
	// ---------------------------
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	var metrics *httpMetrics
	if cfg.EnableMetrics {
		metrics = setupAndListenMetrics(cfg)
	}
	handlers := NewKNNHandlers(store, defaultK, workers, metrics)
	// ---------------------------
	server := &http.Server{
		Addr:    cfg.HttpHost + ":" + strconv.Itoa(cfg.HttpPort),
		Handler: setupRouter(handlers, metrics),
	}
	go func() {
		log.Info().Str("httpAddr", server.Addr).Msg("HTTPAPI.Serve")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start http server")
		}
	}()
	return server
}
