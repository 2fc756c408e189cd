package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditchat/pkg/domain"
	"auditchat/pkg/requestcontext"
)

type fakeBot struct {
	lastText    string
	lastConv    *domain.ConversationContext
	lastChannel string
}

func (f *fakeBot) ProcessMessage(ctx context.Context, text string, conv *domain.ConversationContext) domain.Response {
	f.lastText = text
	f.lastConv = conv
	f.lastChannel = requestcontext.ChannelID(ctx)
	return domain.NewResponse("pong", nil)
}

func newTestRouter(secret string) (*fakeBot, http.Handler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bot := &fakeBot{}
	return bot, NewRouter(NewHandler(bot, logger), secret, logger)
}

func postQuery(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestQuery(t *testing.T) {
	bot, router := newTestRouter("")

	rec := postQuery(t, router, `{"text":"help","user_id":"U1","channel_id":"C1"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "help", bot.lastText)
	assert.Equal(t, "U1", bot.lastConv.PlatformUserID)
	assert.Equal(t, "C1", bot.lastConv.ChannelID)
	assert.Equal(t, "C1", bot.lastChannel, "channel propagates via context too")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var resp domain.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Message)
}

func TestQuery_BadRequests(t *testing.T) {
	_, router := newTestRouter("")

	tests := []struct {
		name string
		body string
	}{
		{"blank text", `{"text":"   "}`},
		{"malformed json", `{"text":`},
		{"unknown field", `{"text":"hi","bogus":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postQuery(t, router, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "bad_request")
		})
	}
}

func TestQuery_SignatureVerification(t *testing.T) {
	const secret = "webhook-secret"
	body := `{"text":"help"}`
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signed := computeSignature(secret, timestamp, []byte(body))

	t.Run("valid signature accepted", func(t *testing.T) {
		_, router := newTestRouter(secret)
		rec := postQuery(t, router, body, map[string]string{
			timestampHeader: timestamp,
			signatureHeader: signed,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong signature rejected", func(t *testing.T) {
		_, router := newTestRouter(secret)
		rec := postQuery(t, router, body, map[string]string{
			timestampHeader: timestamp,
			signatureHeader: computeSignature("other-secret", timestamp, []byte(body)),
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing timestamp rejected", func(t *testing.T) {
		_, router := newTestRouter(secret)
		rec := postQuery(t, router, body, map[string]string{signatureHeader: signed})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		stale := strconv.FormatInt(time.Now().Add(-replayWindow-time.Minute).Unix(), 10)
		_, router := newTestRouter(secret)
		rec := postQuery(t, router, body, map[string]string{
			timestampHeader: stale,
			signatureHeader: computeSignature(secret, stale, []byte(body)),
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty secret disables verification", func(t *testing.T) {
		_, router := newTestRouter("")
		rec := postQuery(t, router, body, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthAndMetricsNeedNoSignature(t *testing.T) {
	_, router := newTestRouter("webhook-secret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
