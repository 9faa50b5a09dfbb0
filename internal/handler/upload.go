package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"framerelay/internal/config"
	"framerelay/internal/fault"
	"framerelay/internal/model"
	"framerelay/internal/service"
	"framerelay/internal/telegram"

	"github.com/google/uuid"
)

// ImageField is the multipart field carrying the frame.
const ImageField = "image"

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// Sink delivers one photo to the destination chat.
type Sink interface {
	SendPhoto(ctx context.Context, chatID, filename string, photo io.Reader) error
}

// relayRequest is the server side form of one frame. It lives only for the request.
type relayRequest struct {
	filename string
	size     int64
	payload  io.Reader
}

// UploadFrameHandler handles POST /api/upload-frame by forwarding the "image" field to the sink.
// Each request ends in exactly one terminal response; nothing is retried.
func UploadFrameHandler(cfg *config.RelayConfig, sink Sink, manager *service.Manager, reporter *fault.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		delivery := &model.Delivery{}

		defer func() {
			if rec := recover(); rec != nil {
				reporter.Report(fault.New(fault.Internal, "relay", fmt.Errorf("panic: %v", rec)))
				http.Error(w, "Server error", http.StatusInternalServerError)
				delivery.Status = http.StatusInternalServerError
				delivery.Outcome = model.OutcomeServerError
			}
			delivery.DurationMS = time.Since(start).Milliseconds()
			delivery.CreatedAt = time.Now()
			manager.Record(delivery)
		}()

		fail := func(status int, outcome model.Outcome, text string) {
			delivery.Status = status
			delivery.Outcome = outcome
			http.Error(w, text, status)
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			reporter.Report(fault.New(fault.Internal, "parse upload", err))
			fail(http.StatusInternalServerError, model.OutcomeServerError, "Server error")
			return
		}
		defer r.MultipartForm.RemoveAll()

		// Only a file part counts; a plain form value named image is treated as missing.
		file, header, err := r.FormFile(ImageField)
		if errors.Is(err, http.ErrMissingFile) {
			reporter.Report(fault.New(fault.Validation, "upload", errors.New("no image field")))
			fail(http.StatusBadRequest, model.OutcomeNoImage, "No image")
			return
		}
		if err != nil {
			reporter.Report(fault.New(fault.Internal, "read image", err))
			fail(http.StatusInternalServerError, model.OutcomeServerError, "Server error")
			return
		}
		defer file.Close()

		if !cfg.Configured() {
			reporter.Report(fault.New(fault.Validation, "relay", config.ErrMissingSecrets))
			fail(http.StatusInternalServerError, model.OutcomeMisconfigured, "Server misconfigured")
			return
		}

		req := relayRequest{
			filename: frameFilename(time.Now()),
			size:     header.Size,
			payload:  file,
		}
		delivery.Filename = req.filename
		delivery.Size = req.size

		sinkStart := time.Now()
		err = sink.SendPhoto(r.Context(), cfg.ChatID, req.filename, req.payload)
		manager.ObserveSink(time.Since(sinkStart).Seconds())

		if err != nil {
			delivery.SinkError = sinkErrorText(err)
			reporter.Report(fault.New(fault.Delivery, "sendPhoto "+req.filename, errors.New(delivery.SinkError)))
			fail(http.StatusInternalServerError, model.OutcomeDelivery, "Failed to relay")
			return
		}

		delivery.Status = http.StatusOK
		delivery.Outcome = model.OutcomeOK
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

// frameFilename returns a timestamped name with a random suffix so concurrent frames do not collide.
func frameFilename(t time.Time) string {
	return fmt.Sprintf("frame-%d-%s.jpg", t.UnixMilli(), uuid.NewString()[:8])
}

// sinkErrorText returns the sink's error body when there is one.
func sinkErrorText(err error) string {
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}
