package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/greencart/internal/storage"
)

// ListProductsHandler обрабатывает GET /api/product/list
func ListProductsHandler(log *slog.Logger, products storage.ProductStorage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		list, err := products.ListProducts(r.Context())
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			writeFailure(logger, w, "failed to list products")
			return
		}
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, Products: list})
	}
}
