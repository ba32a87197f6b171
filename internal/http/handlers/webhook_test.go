package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photobot/internal/domain"
	"photobot/internal/notify"
)

func newWebhookApp(t *testing.T) (*App, *memRepo, *memLedger, *busRecorder) {
	t.Helper()
	repo := newMemRepo()
	ledger := newMemLedger(7, 5)
	bus := &busRecorder{}
	app := &App{
		Generations:    repo,
		Ledger:         ledger,
		Notifier:       bus,
		Logger:         zerolog.Nop(),
		SupportContact: "@photobot_support",
	}
	require.NoError(t, repo.Create(context.Background(), &domain.Generation{
		ID:     "gen-1",
		UserID: 7,
		Kind:   domain.KindVideo,
		Status: domain.StatusPending,
		ChatID: 100,
	}))
	// The worker debited and submitted before the callback can arrive.
	require.NoError(t, repo.MarkProcessing(context.Background(), "gen-1", 10))
	return app, repo, ledger, bus
}

func webhookRequest(body string) *http.Request {
	target := "/video-webhook/abc?generationId=gen-1&userId=7&chatId=100&messageId=55&language=en&effect=animate&source=runway"
	return httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
}

func TestVideoWebhookSuccessDeliversOnce(t *testing.T) {
	app, repo, ledger, bus := newWebhookApp(t)

	body := `{"id":"task-123","status":"SUCCEEDED","output":["https://cdn.example.com/video.mp4"]}`
	rec := httptest.NewRecorder()
	app.VideoWebhook(rec, webhookRequest(body))
	require.Equal(t, http.StatusOK, rec.Code)

	gen, err := repo.GetByID(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, gen.Status)
	assert.Equal(t, []string{"https://cdn.example.com/video.mp4"}, gen.OutputRefs)

	videos := bus.byTopic(notify.TopicSendVideo)
	require.Len(t, videos, 1)
	sent := videos[0].payload.(notify.SendVideo)
	assert.Equal(t, "https://cdn.example.com/video.mp4", sent.VideoURL)
	assert.Equal(t, int64(100), sent.ChatID)

	// Providers redeliver; the duplicate must be absorbed silently.
	rec = httptest.NewRecorder()
	app.VideoWebhook(rec, webhookRequest(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, bus.byTopic(notify.TopicSendVideo), 1)
	assert.Zero(t, ledger.credits, "success never credits")
}

func TestVideoWebhookFailureRefundsExactlyOnce(t *testing.T) {
	app, repo, ledger, bus := newWebhookApp(t)

	body := `{"id":"task-123","status":"FAILED","failure":"generation rejected"}`
	rec := httptest.NewRecorder()
	app.VideoWebhook(rec, webhookRequest(body))
	require.Equal(t, http.StatusOK, rec.Code)

	gen, err := repo.GetByID(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, gen.Status)
	assert.Equal(t, "generation rejected", gen.ErrorMessage)

	remaining, err := ledger.Remaining(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 15, remaining, "the recorded cost comes back")

	statuses := bus.byTopic(notify.TopicStatusUpdate)
	require.Len(t, statuses, 1)
	assert.Contains(t, statuses[0].payload.(notify.StatusUpdate).Text, "@photobot_support")

	// A redelivered failure must not refund twice.
	rec = httptest.NewRecorder()
	app.VideoWebhook(rec, webhookRequest(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ledger.credits)
	remaining, _ = ledger.Remaining(context.Background(), 7)
	assert.Equal(t, 15, remaining)
}

func TestVideoWebhookExtractsOutputPerSource(t *testing.T) {
	cases := []struct {
		name   string
		source string
		body   string
		want   string
	}{
		{"runway array", "runway", `{"status":"SUCCEEDED","output":["https://cdn/r.mp4"]}`, "https://cdn/r.mp4"},
		{"replicate string", "replicate", `{"status":"succeeded","output":"https://cdn/p.mp4"}`, "https://cdn/p.mp4"},
		{"fal nested", "fal", `{"status":"COMPLETED","video":{"url":"https://cdn/f.mp4"}}`, "https://cdn/f.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, repo, _, bus := newWebhookApp(t)
			target := "/video-webhook/abc?generationId=gen-1&userId=7&chatId=100&messageId=55&language=en&effect=animate&source=" + tc.source
			rec := httptest.NewRecorder()
			app.VideoWebhook(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(tc.body)))
			require.Equal(t, http.StatusOK, rec.Code)

			gen, err := repo.GetByID(context.Background(), "gen-1")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCompleted, gen.Status)
			assert.Equal(t, []string{tc.want}, gen.OutputRefs)

			videos := bus.byTopic(notify.TopicSendVideo)
			require.Len(t, videos, 1)
			assert.Equal(t, tc.want, videos[0].payload.(notify.SendVideo).VideoURL)
		})
	}
}

func TestVideoWebhookIgnoresProgressCallbacks(t *testing.T) {
	app, repo, _, bus := newWebhookApp(t)

	rec := httptest.NewRecorder()
	app.VideoWebhook(rec, webhookRequest(`{"id":"task-123","status":"RUNNING"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	gen, err := repo.GetByID(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, gen.Status)
	assert.Empty(t, bus.events)
}

func TestVideoWebhookRejectsMalformedDeliveries(t *testing.T) {
	app, _, _, _ := newWebhookApp(t)

	rec := httptest.NewRecorder()
	app.VideoWebhook(rec, httptest.NewRequest(http.MethodPost, "/video-webhook/abc", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Success without an output cannot be settled.
	rec = httptest.NewRecorder()
	app.VideoWebhook(rec, webhookRequest(`{"id":"task-123","status":"SUCCEEDED"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing correlation query.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/video-webhook/abc", strings.NewReader(`{"status":"SUCCEEDED","output":["u"]}`))
	app.VideoWebhook(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
