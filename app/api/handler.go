package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"docsum/metrics"
	"docsum/multipart"
	"docsum/types"
)

// Summarizer runs the generation pipeline over a file on disk.
type Summarizer interface {
	Run(ctx context.Context, path string) (string, error)
}

type SummarizeHandler struct {
	summarizer Summarizer
	timeout    time.Duration
	tempDir    string
	logger     *slog.Logger
}

// NewSummarizeHandler returns the upload handler. A zero timeout leaves the pipeline
// unbounded; an empty tempDir uses the OS default.
func NewSummarizeHandler(s Summarizer, timeout time.Duration, tempDir string, logger *slog.Logger) *SummarizeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizeHandler{
		summarizer: s,
		timeout:    timeout,
		tempDir:    tempDir,
		logger:     logger,
	}
}

func (h *SummarizeHandler) HandleSummarize(c *fiber.Ctx) (err error) {
	start := time.Now()
	defer func() {
		status := fiber.StatusOK
		if err != nil {
			status = StatusFor(err)
		}
		metrics.SummarizeRequests.WithLabelValues(metrics.Outcome(status)).Inc()
	}()

	boundary, err := multipart.Boundary(c.Get(fiber.HeaderContentType))
	if err != nil {
		return h.fail(types.StageReceived, err)
	}
	upload, err := multipart.Parse(c.Body(), boundary)
	if errors.Is(err, multipart.ErrNoFilePart) {
		return h.fail(types.StageValidated, fmt.Errorf("%w: no file provided", types.ErrInvalidInput))
	}
	if err != nil {
		return h.fail(types.StageReceived, err)
	}

	params := types.NewUploadParams(upload)
	if err := types.Validate(params); err != nil {
		return h.fail(types.StageValidated, err)
	}
	h.logger.Info("upload accepted", "filename", upload.Filename, "bytes", params.Size)

	path, err := h.writeTempFile(upload.Data, params.Extension)
	if err != nil {
		return h.fail(types.StageTempFile, err)
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			h.logger.Error("failed to remove temp file", "path", path, "err", rerr)
		}
	}()

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	summary, err := h.summarizer.Run(ctx, path)
	if err != nil {
		return h.fail(types.StageGenerated, err)
	}

	h.logger.Info("summary sent", "filename", upload.Filename, "took", time.Since(start))
	return c.JSON(types.SummaryResponse{
		Summary:  summary,
		Filename: upload.Filename,
		Status:   "success",
	})
}

// writeTempFile stores data in a fresh file carrying ext so the loader can dispatch on it.
func (h *SummarizeHandler) writeTempFile(data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(h.tempDir, "docsum-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// fail tags err with stage unless an inner stage is already recorded.
func (h *SummarizeHandler) fail(stage types.Stage, err error) error {
	if types.FailedStage(err) == "" {
		err = types.NewStageError(stage, err)
	}
	h.logger.Warn("summarize failed", "stage", types.FailedStage(err), "err", err)
	return err
}
