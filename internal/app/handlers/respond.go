package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope - единый формат ответа. Ошибки валидации и внешних зависимостей
// отдаются со статусом 200 и success=false, транспортные коды остаются
// за аутентификацией и вебхуком.
type Envelope struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	User     interface{} `json:"user,omitempty"`
	URL      string      `json:"url,omitempty"`
	Orders   interface{} `json:"orders,omitempty"`
	Products interface{} `json:"products,omitempty"`
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeSuccess(log *slog.Logger, w http.ResponseWriter, message string) {
	writeJSON(log, w, http.StatusOK, Envelope{Success: true, Message: message})
}

func writeFailure(log *slog.Logger, w http.ResponseWriter, message string) {
	writeJSON(log, w, http.StatusOK, Envelope{Success: false, Message: message})
}
