package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// requestIDHeader is set by middleware.RequestID before any handler runs.
const requestIDHeader = "X-Request-Id"

// encodeFailure is written when a payload cannot be marshalled.
var encodeFailure = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}` + "\n")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusCreated, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto the error envelope. Untyped errors become
// CodeInternal; only codes that allow it leak their message and details.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := typed.Code().Metadata()
	logRequestError(ctx, logg, meta, typed, err)
	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: publicError(meta, typed, w.Header().Get(requestIDHeader))})
}

func publicError(meta pkgerrors.Metadata, typed *pkgerrors.Error, requestID string) types.APIError {
	out := types.APIError{Code: string(typed.Code()), Message: meta.PublicMessage, RequestID: requestID}
	if m := typed.Message(); meta.ExposeMessage && m != "" {
		out.Message = m
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

func logRequestError(ctx context.Context, logg *logger.Logger, meta pkgerrors.Metadata, typed *pkgerrors.Error, err error) {
	if logg == nil {
		return
	}
	fields := pkgerrors.Dump(err).Fields()
	if dm, ok := typed.Details().(map[string]any); ok {
		if step, ok := dm["step"]; ok {
			fields["step"] = step
		}
	}
	ctx = logg.WithFields(ctx, fields)
	if meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(logg.WithField(ctx, "error", err.Error()), "request.rejected")
}

// WriteCSV streams an attachment. Errors after the first byte has been
// written can only be logged; the status line is already on the wire.
func WriteCSV(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, filename string, render func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	cw := &countingWriter{w: w}
	err := render(cw)
	switch {
	case err == nil:
	case cw.n == 0:
		w.Header().Del("Content-Disposition")
		WriteError(ctx, logg, w, err)
	case logg != nil:
		logg.Error(logg.WithField(ctx, "bytes_written", cw.n), "csv.stream_failed", err)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, encodeFailure
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
