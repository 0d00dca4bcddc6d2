package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// decisionNote is the redirect outcome a handler reports back to the
// request logger. The Logger middleware installs a mutable note on the
// context; the handler fills it in after resolving.
type decisionNote struct {
	label       string
	state       string
	blockReason string
	set         bool
}

type decisionNoteKey struct{}

// AnnotateDecision attaches the redirect outcome to the request's log
// line: the matched variant label, the fallback state that produced it,
// and the block reason when the visit was refused. No-op when the
// Logger middleware is not installed.
func AnnotateDecision(ctx context.Context, label, fallbackState, blockReason string) {
	note, ok := ctx.Value(decisionNoteKey{}).(*decisionNote)
	if !ok {
		return
	}
	note.label = label
	note.state = fallbackState
	note.blockReason = blockReason
	note.set = true
}

// statusWriter captures the response status for the log line.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Logger logs one structured line per request: method, path, status,
// duration, request ID, and the redirect decision attributes when the
// handler annotated one. Warns on 4xx, errors on 5xx.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			note := &decisionNote{}
			ctx := context.WithValue(r.Context(), decisionNoteKey{}, note)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", sw.status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if note.set {
				attrs = append(attrs,
					slog.String("fallback_state", note.state),
					slog.String("matched_label", note.label),
				)
				if note.blockReason != "" {
					attrs = append(attrs, slog.String("block_reason", note.blockReason))
				}
			}

			level := slog.LevelInfo
			switch {
			case sw.status >= 500:
				level = slog.LevelError
			case sw.status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
