package response

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "admissions-crm/errors"
	"admissions-crm/logger"
	"admissions-crm/repository"
)

// StandardResponse represents the standard API response structure
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SuccessResponse sends a success response with given status code, message, and data
func SuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	response := StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
	SendJSON(w, statusCode, response)
}

// ErrorResponse sends an error response with given status code and error message
func ErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	response := StandardResponse{
		Status: "error",
		Error:  errorMsg,
	}
	SendJSON(w, statusCode, response)
}

// ErrorWithData is Error for operations that still produced a partial result.
func ErrorWithData(w http.ResponseWriter, err error, fallback string, data interface{}) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("%s: %v", fallback, err)
		msg = fallback
	}
	SendJSON(w, status, StandardResponse{Status: "error", Error: msg, Data: data})
}

// Error maps err's kind to a status code. Unclassified and internal errors
// are logged and reported with the fallback message only.
func Error(w http.ResponseWriter, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s: %v", fallback, err)
		ErrorResponse(w, status, fallback)
		return
	}
	ErrorResponse(w, status, err.Error())
}

// StatusFor returns the HTTP status of an error kind.
func StatusFor(err error) int {
	if errors.Is(err, repository.ErrNotFound) {
		return http.StatusNotFound
	}
	switch apperrors.KindOf(err) {
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.Conflict:
		return http.StatusConflict
	case apperrors.Invalid:
		return http.StatusBadRequest
	case apperrors.Unauthorized:
		return http.StatusUnauthorized
	case apperrors.Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// SendJSON encodes and sends a JSON response
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
