// Package handlers exposes the enqueue API the bot process calls and the
// completion webhook asynchronous providers call back into.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"photobot/internal/domain"
	"photobot/internal/notify"
	"photobot/internal/queue"
)

type App struct {
	Generations domain.GenerationRepository
	Ledger      domain.BalanceLedger
	Engine      queue.Engine
	Notifier    notify.Publisher
	Logger      zerolog.Logger

	SupportContact  string
	DefaultLanguage string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

// publish is best effort, matching worker semantics: a notification failure
// never changes an HTTP response.
func (a *App) publish(ctx context.Context, topic string, payload any) {
	if err := a.Notifier.Publish(ctx, topic, payload); err != nil {
		a.Logger.Warn().Err(err).Str("topic", topic).Msg("handlers: notification publish failed")
	}
}
