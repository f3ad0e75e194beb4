package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
)

const (
	formFieldFile      = "file"
	outputPrefix       = "processed_"
	outputExtension    = ".wav"
	outputMIMEType     = "audio/wav"
	headerRequestID    = "X-Request-Id"
	maxMultipartMemory = 8 << 20
)

func withLogger(ctx context.Context, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New()
		w.Header().Set(headerRequestID, requestID.String())
		l := logger.FromCtx(ctx).WithField("request_id", requestID.String())
		next.ServeHTTP(w, r.WithContext(logger.CtxWithLogger(r.Context(), l)))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, "+headerRequestID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debugf(ctx, "unable to write the response: %v", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Errorf(ctx, "request failed: %v", err)
	} else {
		logger.Debugf(ctx, "bad request: %v", err)
	}
	writeJSON(ctx, w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, fmt.Errorf("method %s is not allowed", r.Method))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "healthy"})
}

// OutputName returns the attachment name of the processed upload.
func OutputName(uploadName string) string {
	base := filepath.Base(uploadName)
	return outputPrefix + strings.TrimSuffix(base, filepath.Ext(base)) + outputExtension
}

func (s *Server) isAllowed(name string) bool {
	return slices.Contains(s.Options.AllowedExtensions, strings.ToLower(filepath.Ext(name)))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		writeError(ctx, w, http.StatusMethodNotAllowed, fmt.Errorf("method %s is not allowed", r.Method))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.Options.MaxUploadBytes)
	err := r.ParseMultipartForm(maxMultipartMemory)
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logger.Errorf(ctx, "unable to remove the multipart form files: %v", err)
			}
		}()
	}
	var (
		file   multipart.File
		header *multipart.FileHeader
	)
	if err == nil {
		file, header, err = r.FormFile(formFieldFile)
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			writeError(ctx, w, http.StatusRequestEntityTooLarge, fmt.Errorf("the upload exceeds %d bytes", maxBytesErr.Limit))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("no file part"))
		default:
			writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("unable to parse the upload: %w", err))
		}
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if header.Filename == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("no selected file"))
		return
	}
	if !s.isAllowed(name) {
		writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("file type not allowed, expected one of %s", strings.Join(s.Options.AllowedExtensions, ", ")))
		return
	}

	if err := s.process(ctx, w, name, file); err != nil {
		writeError(ctx, w, http.StatusInternalServerError, err)
	}
}

// process keeps every intermediate file in a scratch directory that is
// removed before it returns. The response is only written on success.
func (s *Server) process(
	ctx context.Context,
	w http.ResponseWriter,
	name string,
	upload io.Reader,
) (_err error) {
	logger.Tracef(ctx, "process(%s)", name)
	defer func() { logger.Tracef(ctx, "/process(%s): %v", name, _err) }()

	tmpDir, err := os.MkdirTemp(s.Options.TempDir, "denoise-")
	if err != nil {
		return fmt.Errorf("unable to create a temporary directory: %w", err)
	}
	inputPath := filepath.Join(tmpDir, name)
	outputName := OutputName(name)
	outputPath := filepath.Join(tmpDir, outputName)
	defer func() {
		var mErr *multierror.Error
		for _, path := range []string{inputPath, outputPath, tmpDir} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				mErr = multierror.Append(mErr, fmt.Errorf("unable to remove '%s': %w", path, err))
			}
		}
		if err := mErr.ErrorOrNil(); err != nil {
			logger.Errorf(ctx, "cleanup failed: %v", err)
		}
	}()

	if err := saveUpload(inputPath, upload); err != nil {
		return err
	}

	sig, err := codec.Load(ctx, inputPath, codec.LoadOptions{SampleRate: s.Options.SampleRate})
	if err != nil {
		return fmt.Errorf("unable to load '%s': %w", name, err)
	}
	logger.Debugf(ctx, "loaded '%s': %d samples at %d Hz (%v)", name, len(sig.Samples), sig.SampleRate, sig.Duration())

	denoised, report, err := denoise.Denoise(ctx, sig, s.Estimator, s.Options.Pipeline)
	if err != nil {
		return fmt.Errorf("unable to denoise '%s': %w", name, err)
	}
	if report.Reconciliation.Partial() {
		logger.Infof(ctx, "only %d of %d frames of '%s' were denoised", report.EstimatedFrames, report.Frames, name)
	}

	if err := codec.Save(ctx, outputPath, denoised); err != nil {
		return fmt.Errorf("unable to save the result: %w", err)
	}

	return sendFile(ctx, w, outputPath, outputName)
}

func saveUpload(path string, upload io.Reader) (_err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close '%s': %w", path, err)
		}
	}()
	if _, err := io.Copy(f, upload); err != nil {
		return fmt.Errorf("unable to store the upload: %w", err)
	}
	return nil
}

func sendFile(ctx context.Context, w http.ResponseWriter, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open the result: %w", err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("unable to stat the result: %w", err)
	}

	h := w.Header()
	h.Set("Content-Type", outputMIMEType)
	h.Set("Content-Length", fmt.Sprint(stat.Size()))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)

	wc := datacounter.NewWriterCounter(w)
	if _, err := io.Copy(wc, f); err != nil {
		// the status line is already sent, so the client just gets a short body
		logger.Errorf(ctx, "unable to send the result after %d bytes: %v", wc.Count(), err)
		return nil
	}
	logger.Debugf(ctx, "sent %d bytes of '%s'", wc.Count(), name)
	return nil
}
