package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/query"
)

const maxBodyBytes = 1 << 20

// resource обслуживает маршруты /api/{collection} одной коллекции.
type resource[T domain.Record] struct {
	kind     domain.RecordKind
	repo     domain.RecordRepository[T]
	baseURL  string
	shortcut string
	logger   *log.Entry
}

func newResource[T domain.Record](repo domain.RecordRepository[T], baseURL, shortcut string, logger *log.Entry) *resource[T] {
	var zero T
	kind := zero.Kind()
	return &resource[T]{
		kind:     kind,
		repo:     repo,
		baseURL:  strings.TrimRight(baseURL, "/"),
		shortcut: shortcut,
		logger:   logger.WithField("kind", string(kind)),
	}
}

func (res *resource[T]) register(mux *http.ServeMux) {
	collection := "/api/" + res.kind.Collection()
	item := collection + "/{key}"

	mux.HandleFunc("GET "+collection, res.list)
	mux.HandleFunc("POST "+collection, res.create)
	mux.HandleFunc("GET "+item, res.get)
	mux.HandleFunc("PATCH "+item, res.update)
	mux.HandleFunc("PUT "+item, res.replace)
	mux.HandleFunc("DELETE "+item, res.delete)
}

func (res *resource[T]) collectionURL() string {
	return res.baseURL + "/api/" + res.kind.Collection()
}

func (res *resource[T]) itemURL(key string) string {
	return res.collectionURL() + "/" + url.PathEscape(key)
}

func (res *resource[T]) collectionLinks() links {
	return links{
		"self":   {Href: res.collectionURL(), Method: http.MethodGet},
		"create": {Href: res.collectionURL(), Method: http.MethodPost},
		"item":   {Href: res.collectionURL() + "/{" + res.kind.KeyField() + "}", Method: http.MethodGet},
	}
}

func (res *resource[T]) itemLinks(key string) links {
	return links{
		"self":       {Href: res.itemURL(key), Method: http.MethodGet},
		"update":     {Href: res.itemURL(key), Method: http.MethodPatch},
		"replace":    {Href: res.itemURL(key), Method: http.MethodPut},
		"delete":     {Href: res.itemURL(key), Method: http.MethodDelete},
		"collection": {Href: res.collectionURL(), Method: http.MethodGet},
	}
}

func (res *resource[T]) list(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := parseQuery(values)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	shortcutValue := ""
	if res.shortcut != "" {
		shortcutValue = strings.TrimSpace(values.Get(res.shortcut))
	}

	var result domain.ListResult[T]
	if shortcutValue == "" {
		result, err = res.repo.List(r.Context(), q)
	} else {
		result, err = res.listByShortcut(r, q, shortcutValue)
	}
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	if shortcutValue != "" && result.TotalCount == 0 {
		writeError(w, r, res.logger, &domain.Error{
			Code:    domain.CodeNotFound,
			Message: fmt.Sprintf("no %s with %s %q", res.kind.Collection(), res.shortcut, shortcutValue),
		})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	setOperationHeaders(w, r, true, "Retrieved")
	writeJSON(w, http.StatusOK, map[string]any{
		res.kind.Collection(): result.Items,
		"totalCount":          result.TotalCount,
		"_links":              res.collectionLinks(),
	})
}

// listByShortcut применяет короткий фильтр (?status=, ?type=, ?unit=) без учёта
// регистра поверх обычной выборки; пагинация выполняется после него.
func (res *resource[T]) listByShortcut(r *http.Request, q domain.Query, want string) (domain.ListResult[T], error) {
	page := q.Page
	q.Page = nil

	all, err := res.repo.List(r.Context(), q)
	if err != nil {
		return domain.ListResult[T]{}, err
	}

	matched := make([]T, 0, len(all.Items))
	for _, rec := range all.Items {
		doc, err := domain.ToDocument(rec)
		if err != nil {
			return domain.ListResult[T]{}, domain.NewStorageError("encode "+string(res.kind), err)
		}
		value, ok := query.Resolve(doc, res.shortcut)
		if ok && strings.EqualFold(query.Stringify(value), want) {
			matched = append(matched, rec)
		}
	}

	total := len(matched)
	if page != nil {
		matched = query.Paginate(matched, page.Offset, page.Limit)
	}
	return domain.ListResult[T]{Items: matched, TotalCount: total}, nil
}

func (res *resource[T]) get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rec, err := res.repo.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	setOperationHeaders(w, r, true, "Retrieved")
	writeJSON(w, http.StatusOK, map[string]any{
		string(res.kind): rec,
		"_links":         res.itemLinks(key),
	})
}

func (res *resource[T]) create(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	rec, err := domain.DecodeRecord[T](raw)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	created, err := res.repo.Create(r.Context(), rec)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	w.Header().Set("Location", res.itemURL(created.Key()))
	setOperationHeaders(w, r, true, "Created")
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        fmt.Sprintf("%s %s created", res.kind, created.Key()),
		string(res.kind): created,
		"_links":         res.itemLinks(created.Key()),
	})
}

func (res *resource[T]) update(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	raw, err := readBody(r)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	var patch domain.Patch
	if err := json.Unmarshal(raw, &patch); err != nil {
		writeError(w, r, res.logger, domain.NewValidationError("invalid %s patch: %v", res.kind, err))
		return
	}
	if len(patch) == 0 {
		writeError(w, r, res.logger, domain.NewValidationError("no fields to update"))
		return
	}

	updated, err := res.repo.Update(r.Context(), key, patch)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	setOperationHeaders(w, r, true, "Updated")
	writeJSON(w, http.StatusOK, map[string]any{
		string(res.kind): updated,
		"_links":         res.itemLinks(key),
	})
}

func (res *resource[T]) replace(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	raw, err := readBody(r)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}
	rec, err := domain.DecodeRecord[T](raw)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	replaced, err := res.repo.Replace(r.Context(), key, rec)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	setOperationHeaders(w, r, true, "Updated")
	writeJSON(w, http.StatusOK, map[string]any{
		string(res.kind): replaced,
		"_links":         res.itemLinks(key),
	})
}

func (res *resource[T]) delete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	result, err := res.repo.Delete(r.Context(), key)
	if err != nil {
		writeError(w, r, res.logger, err)
		return
	}

	setOperationHeaders(w, r, true, "Deleted")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Success,
		"message": result.Message,
		"code":    result.Code,
		"_links": links{
			"collection": {Href: res.collectionURL(), Method: http.MethodGet},
			"create":     {Href: res.collectionURL(), Method: http.MethodPost},
		},
	})
}

func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, domain.NewValidationError("read request body: %v", err)
	}
	if len(raw) > maxBodyBytes {
		return nil, domain.NewValidationError("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, domain.NewValidationError("request body is empty")
	}
	return raw, nil
}
