package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

const (
	headerOperationStatus = "Operation-Status"
	headerResourceStatus  = "Resource-Status"
	headerRequestType     = "Request-Type"
)

// link — элемент навигационных метаданных _links.
type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

type links map[string]link

// errorBody — тело ответа об ошибке, те же поля, что у GraphQL ErrorResponse.
type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func setOperationHeaders(w http.ResponseWriter, r *http.Request, success bool, resourceStatus string) {
	operation := "Success"
	if !success {
		operation = "Failed"
	}
	w.Header().Set(headerOperationStatus, operation)
	w.Header().Set(headerResourceStatus, resourceStatus)
	w.Header().Set(headerRequestType, r.Method)
}

// statusFor переводит ошибку ядра в HTTP-статус.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedOperation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func resourceStatusFor(code int) string {
	switch code {
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusBadRequest:
		return "Invalid"
	default:
		return "Unavailable"
	}
}

// writeError отвечает ошибкой ядра. Сбои хранилища наружу не раскрываются.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Entry, err error) {
	code := statusFor(err)
	body := errorBody{Message: domain.MessageOf(err), Code: string(domain.CodeOf(err))}

	entry := logger.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": code,
	})
	if code == http.StatusInternalServerError {
		entry.Error("request failed")
		body.Message = "internal error"
	} else {
		entry.Debug("request rejected")
	}

	setOperationHeaders(w, r, false, resourceStatusFor(code))
	writeJSON(w, code, body)
}
