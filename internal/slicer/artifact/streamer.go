package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	appErr "printum/pkg/errors"
	"printum/pkg/utils/logger"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

const contentType = "text/plain"

// Streamer writes artifacts to HTTP responses.
type Streamer struct {
	gzip         bool
	writeTimeout time.Duration
}

// NewStreamer creates a streamer. With enableGzip set, clients that accept gzip get a
// compressed body. A positive writeTimeout bounds the transfer, counted from the moment
// streaming starts; zero leaves the connection without a write deadline.
func NewStreamer(enableGzip bool, writeTimeout time.Duration) *Streamer {
	return &Streamer{gzip: enableGzip, writeTimeout: writeTimeout}
}

// Stream sends the artifact output as an attachment and then releases the artifact,
// whether or not the transfer completed. An error before any byte is written is an
// *errors.Error the caller can still turn into a response; later errors only mean the
// transfer was cut short.
func (s *Streamer) Stream(w http.ResponseWriter, r *http.Request, a *Artifact) error {
	ctx := r.Context()
	defer a.Release(ctx)

	f, err := os.Open(a.OutputPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.ArtifactMissing, "open artifact failed: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return appErr.Wrapf(err, appErr.ArtifactMissing, "stat artifact failed: %v", err)
	}

	s.armWriteDeadline(ctx, w)

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", ContentDisposition(a.FileName))

	var written int64
	if s.gzip && acceptsGzip(r.Header.Get("Accept-Encoding")) {
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		w.WriteHeader(http.StatusOK)

		zw, _ := gzip.NewWriterLevel(w, gzip.BestSpeed)
		written, err = io.Copy(zw, f)
		if closeErr := zw.Close(); err == nil {
			err = closeErr
		}
	} else {
		h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
		w.WriteHeader(http.StatusOK)
		written, err = io.Copy(w, f)
	}

	if err != nil {
		logger.Warn(ctx, "artifact transfer interrupted",
			zap.Int64("written", written),
			zap.Int64("size", info.Size()),
			zap.Error(err),
		)
		return fmt.Errorf("stream artifact: %w", err)
	}
	logger.Debug(ctx, "artifact sent", zap.Int64("bytes", written), zap.String("file_name", a.FileName))
	return nil
}

// armWriteDeadline restarts the connection write deadline so time spent receiving the
// upload and running the engine is not charged to the transfer.
func (s *Streamer) armWriteDeadline(ctx context.Context, w http.ResponseWriter) {
	deadline := time.Time{}
	if s.writeTimeout > 0 {
		deadline = time.Now().Add(s.writeTimeout)
	}
	err := http.NewResponseController(w).SetWriteDeadline(deadline)
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn(ctx, "set write deadline failed", zap.Error(err))
	}
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "gzip") {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}
