package graphqlapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/graphql-go/graphql"
	log "github.com/sirupsen/logrus"
)

const maxRequestBytes = 1 << 20

// Request — тело запроса GraphQL over HTTP.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Handler исполняет запросы к схеме. POST принимает JSON-тело Request,
// GET — параметры query, variables и operationName.
type Handler struct {
	schema graphql.Schema
	logger *log.Entry
}

// NewHandler создаёт HTTP-обработчик схемы.
func NewHandler(schema graphql.Schema, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "graphql")
	}
	return &Handler{schema: schema, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodPost:
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, "invalid graphql request: "+err.Error(), http.StatusBadRequest)
			return
		}
	case http.MethodGet:
		values := r.URL.Query()
		req.Query = values.Get("query")
		req.OperationName = values.Get("operationName")
		if raw := values.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				http.Error(w, "invalid variables: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	result := h.Execute(r, req)
	if result.HasErrors() {
		h.logger.WithFields(log.Fields{
			"operation": req.OperationName,
			"errors":    len(result.Errors),
		}).Debug("graphql request returned errors")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(result)
}

// Execute выполняет запрос в контексте HTTP-запроса.
func (h *Handler) Execute(r *http.Request, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
}
