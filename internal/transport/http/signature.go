package httptransport

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "auditchat/pkg/domain-errors"
	"auditchat/pkg/platform/httputil"
	"auditchat/pkg/requestcontext"
)

const (
	signatureHeader = "X-Auditchat-Signature"
	timestampHeader = "X-Auditchat-Timestamp"

	// maxBodyBytes bounds signed request bodies; chat messages are small.
	maxBodyBytes = 64 << 10
	// replayWindow is how far a signed timestamp may drift from the server
	// clock before the request is rejected as a replay.
	replayWindow = 5 * time.Minute
)

// VerifySignature authenticates webhook requests: the caller sends a unix
// timestamp and a hex HMAC-SHA256 of "<timestamp>.<body>" under the shared
// secret. An empty secret disables verification for local development.
func VerifySignature(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			timestamp := r.Header.Get(timestampHeader)
			if err := checkTimestamp(timestamp, requestcontext.Now(r.Context())); err != nil {
				logger.WarnContext(r.Context(), "webhook timestamp rejected",
					"error", err, "request_id", requestcontext.RequestID(r.Context()))
				httputil.WriteError(w, err)
				return
			}

			expected := computeSignature(secret, timestamp, body)
			provided := r.Header.Get(signatureHeader)
			if !hmac.Equal([]byte(expected), []byte(provided)) {
				logger.WarnContext(r.Context(), "webhook signature mismatch",
					"request_id", requestcontext.RequestID(r.Context()))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkTimestamp(timestamp string, now time.Time) error {
	if timestamp == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing signature timestamp")
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "malformed signature timestamp")
	}
	drift := now.Sub(time.Unix(unix, 0))
	if drift < -replayWindow || drift > replayWindow {
		return dErrors.New(dErrors.CodeUnauthorized, "signature timestamp outside the accepted window")
	}
	return nil
}

func computeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
