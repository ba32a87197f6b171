package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photobot/internal/domain"
	"photobot/internal/queue"
)

func newTestApp(balance int) (*App, *memRepo, *memLedger, *queue.MemoryEngine, *busRecorder) {
	repo := newMemRepo()
	ledger := newMemLedger(7, balance)
	engine := queue.NewMemoryEngine(queue.Config{})
	bus := &busRecorder{}
	app := &App{
		Generations:     repo,
		Ledger:          ledger,
		Engine:          engine,
		Notifier:        bus,
		Logger:          zerolog.Nop(),
		SupportContact:  "@photobot_support",
		DefaultLanguage: "en",
	}
	return app, repo, ledger, engine, bus
}

func TestEnqueueRestorationAccepted(t *testing.T) {
	app, repo, _, engine, _ := newTestApp(5)

	body := `{"userId":7,"chatId":100,"messageId":55,"language":"ru","fileId":"tg-file-1","hasCreases":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/generations/restoration", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.EnqueueRestoration(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp enqueueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.GenerationID)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, 5, resp.Remaining)

	gen, err := repo.GetByID(context.Background(), resp.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, gen.Status)
	assert.Equal(t, domain.KindRestoration, gen.Kind)
	assert.Equal(t, []string{"tg-file-1"}, gen.InputRefs)

	// The entry is leasable and decodes back to the submitted job.
	entry, err := engine.Lease(context.Background(), domain.KindRestoration.QueueName(), "w")
	require.NoError(t, err)
	payload, err := domain.DecodeJob(entry.Payload)
	require.NoError(t, err)
	job := payload.(*domain.RestorationJob)
	assert.Equal(t, resp.GenerationID, job.GenerationID)
	assert.True(t, job.HasCreases)
	assert.Equal(t, "ru", job.Language)
}

func TestEnqueueRejectsInvalidPayload(t *testing.T) {
	app, _, _, _, _ := newTestApp(5)

	// Missing fileId.
	body := `{"userId":7,"chatId":100,"messageId":55}`
	req := httptest.NewRequest(http.MethodPost, "/v1/generations/restoration", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.EnqueueRestoration(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/generations/effect", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	app.EnqueueEffect(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueRejectsEmptyBalance(t *testing.T) {
	app, _, _, engine, _ := newTestApp(0)

	body := `{"userId":7,"chatId":100,"messageId":55,"fileId":"tg-file-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/generations/restoration", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.EnqueueRestoration(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	_, err := engine.Lease(context.Background(), domain.KindRestoration.QueueName(), "w")
	assert.ErrorIs(t, err, queue.ErrEmpty, "nothing may be queued")
}

func TestEnqueueFailureClosesRecord(t *testing.T) {
	app, repo, _, _, _ := newTestApp(5)
	app.Engine = brokenEngine{}

	body := `{"userId":7,"chatId":100,"messageId":55,"fileId":"tg-file-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/generations/restoration", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.EnqueueRestoration(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The pre-created record must not dangle as PENDING forever.
	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.gens, 1)
	for _, gen := range repo.gens {
		assert.Equal(t, domain.StatusFailed, gen.Status)
	}
}

func TestGenerationStatusNotFound(t *testing.T) {
	app, _, _, _, _ := newTestApp(5)

	req := httptest.NewRequest(http.MethodGet, "/v1/generations/does-not-exist", nil)
	req = withChiParam(req, "id", "does-not-exist")
	rec := httptest.NewRecorder()
	app.GenerationStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
