package handlers

import (
	"encoding/json"
	"net/http"

	resp "admissions-crm/http/response"
	"admissions-crm/logger"
	"admissions-crm/services/kafka"
	"admissions-crm/utils"
)

// DLQHandler manages dead-lettered Kafka messages.
type DLQHandler struct {
	dlq *kafka.DLQService
}

func NewDLQHandler(dlq *kafka.DLQService) *DLQHandler {
	return &DLQHandler{dlq: dlq}
}

// GetDLQMessages retrieves unresolved DLQ messages
// GET /api/dlq/messages?limit=50
func (h *DLQHandler) GetDLQMessages(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	messages, err := h.dlq.List(r.Context(), utils.ParseLimit(r))
	if err != nil {
		resp.Error(w, err, "Failed to fetch DLQ messages")
		return
	}

	resp.SuccessResponse(w, http.StatusOK, "DLQ messages retrieved", map[string]interface{}{
		"count": len(messages),
		"data":  messages,
	})
}

// RetryDLQMessage retries processing of a specific DLQ message
// POST /api/dlq/messages/retry?id=
func (h *DLQHandler) RetryDLQMessage(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	messageID, err := utils.ParseIDParam(r, "id")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, "Missing or invalid message ID parameter")
		return
	}

	if err := h.dlq.Retry(r.Context(), messageID); err != nil {
		logger.Error("Error retrying DLQ message %d: %v", messageID, err)
		if resp.StatusFor(err) == http.StatusNotFound {
			resp.ErrorResponse(w, http.StatusNotFound, "DLQ message not found")
			return
		}
		resp.ErrorResponse(w, http.StatusBadGateway, "Failed to retry message: "+err.Error())
		return
	}

	resp.SuccessResponse(w, http.StatusOK, "Message retried and resolved", map[string]interface{}{
		"messageId": messageID,
	})
}

// ResolveDLQMessage marks a DLQ message as resolved
// POST /api/dlq/messages/resolve?id=
func (h *DLQHandler) ResolveDLQMessage(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	messageID, err := utils.ParseIDParam(r, "id")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, "Missing or invalid message ID parameter")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Notes == "" {
		req.Notes = "Manually resolved"
	}

	if err := h.dlq.Resolve(r.Context(), messageID, req.Notes); err != nil {
		resp.Error(w, err, "Failed to resolve message")
		return
	}

	resp.SuccessResponse(w, http.StatusOK, "Message marked as resolved", map[string]interface{}{
		"messageId": messageID,
	})
}

// GetDLQStats retrieves statistics about DLQ messages
// GET /api/dlq/stats
func (h *DLQHandler) GetDLQStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.dlq.Stats(r.Context())
	if err != nil {
		resp.Error(w, err, "Failed to fetch DLQ statistics")
		return
	}

	resp.SuccessResponse(w, http.StatusOK, "DLQ statistics", stats)
}
