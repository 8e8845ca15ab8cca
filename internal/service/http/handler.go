// Package httpapi публикует коллекции записей как REST-ресурсы /api/orders,
// /api/containers и /api/goods.
package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// HeaderRequestID — заголовок сквозного идентификатора запроса.
const HeaderRequestID = "X-Request-ID"

// Repositories — коллекции, которые обслуживает API.
type Repositories struct {
	Orders     domain.RecordRepository[domain.Order]
	Containers domain.RecordRepository[domain.Container]
	Goods      domain.RecordRepository[domain.Good]
}

// Config задаёт публичный адрес для ссылок _links.
type Config struct {
	PublicBaseURL string
}

// NewHandler собирает маршруты всех коллекций.
func NewHandler(repos Repositories, cfg Config, logger *log.Entry) http.Handler {
	if logger == nil {
		logger = log.New().WithField("component", "http-api")
	}

	mux := http.NewServeMux()
	newResource(repos.Orders, cfg.PublicBaseURL, "status", logger).register(mux)
	newResource(repos.Containers, cfg.PublicBaseURL, "type", logger).register(mux)
	newResource(repos.Goods, cfg.PublicBaseURL, "unit", logger).register(mux)

	return requestLogger(mux, logger)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger присваивает запросу X-Request-ID (или берёт входящий) и
// пишет строку access-лога.
func requestLogger(next http.Handler, logger *log.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.WithFields(log.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("http request")
	})
}
