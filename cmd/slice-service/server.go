package main

import (
	"net/http"
	"time"

	commonmw "printum/internal/common/http/middleware"
	"printum/internal/config"
	"printum/internal/slicer/controller"

	"github.com/gin-gonic/gin"
)

const (
	// multipartOverhead leaves room for form boundaries and the text fields on top of
	// the model size limit.
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
	idleTimeout       = 60 * time.Second
)

func buildHTTPServer(cfg *config.Config, sliceController *controller.SliceController, metricsHandler http.Handler) *http.Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = multipartMemory
	router.Use(commonmw.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	router.Use(commonmw.CORSMiddleware(commonmw.DefaultCORSConfig(cfg.Server.CORSAllowedOrigins)))

	router.GET("/health", sliceController.Health)
	router.POST("/slice", commonmw.BodyLimit(cfg.MaxUploadBytes()+multipartOverhead), sliceController.Slice)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	router.NoRoute(controller.NotFound)

	// No server-wide WriteTimeout: it would start with the request headers and cover the
	// upload and the engine run. The streamer arms a deadline for the transfer itself.
	return &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: cfg.ReadTimeout(),
		IdleTimeout: idleTimeout,
	}
}
