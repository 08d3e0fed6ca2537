// Package controller exposes the slice service over HTTP.
package controller

import (
	"errors"
	"net/http"

	"printum/internal/slicer/artifact"
	"printum/internal/slicer/health"
	"printum/internal/slicer/service"
	"printum/internal/slicer/upload"
	appErr "printum/pkg/errors"
	"printum/pkg/utils/logger"
	"printum/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	modelField    = "model"
	settingsField = "settings"
	jobLabelField = "jobLabel"
)

// SliceController handles the health and slice endpoints.
type SliceController struct {
	slices   *service.SliceService
	streamer *artifact.Streamer
	probe    *health.Probe
}

func NewSliceController(slices *service.SliceService, streamer *artifact.Streamer, probe *health.Probe) *SliceController {
	return &SliceController{slices: slices, streamer: streamer, probe: probe}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	EngineStatus string `json:"engineStatus"`
	BinaryPath   string `json:"binaryPath,omitempty"`
	Message      string `json:"message,omitempty"`
}

func (h *SliceController) Health(c *gin.Context) {
	report := h.probe.Check(c.Request.Context())
	if !report.Ready {
		logger.Warn(c.Request.Context(), "engine binary unavailable",
			zap.String("binary", report.BinaryPath),
			zap.String("reason", report.Message),
		)
		response.JSON(c, http.StatusServiceUnavailable, HealthResponse{
			Status:       "error",
			EngineStatus: "missing",
			Message:      report.Message,
		})
		return
	}
	response.JSON(c, http.StatusOK, HealthResponse{
		Status:       "ok",
		EngineStatus: "ready",
		BinaryPath:   report.BinaryPath,
	})
}

func (h *SliceController) Slice(c *gin.Context) {
	ctx := c.Request.Context()
	defer func() {
		if form := c.Request.MultipartForm; form != nil {
			_ = form.RemoveAll()
		}
	}()

	file, err := c.FormFile(modelField)
	if err != nil {
		response.Error(c, h.formError(err))
		return
	}

	settings, err := upload.ParseSettings(c.PostForm(settingsField))
	if err != nil {
		response.Error(c, err)
		return
	}

	ticket, err := h.slices.Accept(ctx, file.Filename, file.Size)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := c.SaveUploadedFile(file, ticket.StoragePath); err != nil {
		h.slices.Discard(ctx, ticket.StoragePath)
		response.Error(c, appErr.Wrapf(err, appErr.UploadStoreFailed, "store upload failed: %v", err))
		return
	}

	art, err := h.slices.Slice(ctx, service.SliceInput{
		ModelPath:    ticket.StoragePath,
		OriginalName: file.Filename,
		JobLabel:     c.PostForm(jobLabelField),
		Settings:     settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.streamer.Stream(c.Writer, c.Request, art); err != nil {
		if !c.Writer.Written() {
			response.Error(c, err)
			return
		}
		_ = c.Error(err)
	}
}

func (h *SliceController) formError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return appErr.New(appErr.ModelFileRequired)
	case errors.As(err, &maxErr):
		return h.slices.Gate().TooLarge(-1)
	default:
		return appErr.Wrapf(err, appErr.InvalidParams, "invalid multipart form: %v", err)
	}
}

// NotFound answers unknown routes with the standard error body.
func NotFound(c *gin.Context) {
	response.ErrorWithCode(c, appErr.NotFound, "Route not found")
}
