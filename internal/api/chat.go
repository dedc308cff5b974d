package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinicore/clinic-booking/internal/chatbot"
)

func chatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "message is required")
			return
		}

		reply := chatbot.Respond(req.Message)

		history := append(req.History,
			ChatMessage{Role: "user", Content: req.Message},
			ChatMessage{Role: "assistant", Content: reply},
		)

		writeJSON(w, http.StatusOK, ChatResponse{
			Reply:   reply,
			History: history,
		})
	}
}
