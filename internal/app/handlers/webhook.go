package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/linemk/greencart/internal/service"
)

// webhookBodyLimit ограничивает размер события шлюза
const webhookBodyLimit = 1 << 16

// WebhookReceived - подтверждение приема события, шлюз перестает ретраить
type WebhookReceived struct {
	Received bool `json:"received"`
}

// StripeWebhookHandler обрабатывает POST /stripe. Единственный путь без
// подтверждения: невалидная подпись, она отвечает 400 без received.
func StripeWebhookHandler(log *slog.Logger, webhookService service.WebhookService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.StripeWebhookHandler"
		logger := log.With(slog.String("op", op))

		payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			logger.Error("failed to read webhook body", slog.Any("error", err))
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if err := webhookService.HandleEvent(r.Context(), payload, signature); err != nil {
			logger.Warn("webhook rejected", slog.Any("error", err))
			http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(logger, w, http.StatusOK, WebhookReceived{Received: true})
	}
}
