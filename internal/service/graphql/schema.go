// Package graphqlapi публикует коллекции записей через GraphQL (POST /graphql).
// Ожидаемые ошибки (валидация, отсутствие, конфликт) возвращаются внутри ответа
// как ErrorResponse; неизвестная операция фильтра и сбои хранилища становятся
// ошибками GraphQL.
package graphqlapi

import (
	"errors"
	"strings"

	"github.com/graphql-go/graphql"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/query"
)

// Repositories — коллекции, которые обслуживает схема.
type Repositories struct {
	Orders     domain.RecordRepository[domain.Order]
	Containers domain.RecordRepository[domain.Container]
	Goods      domain.RecordRepository[domain.Good]
}

// NewSchema строит схему с запросами orders/containers/goods, order/container/good
// и мутациями create*, update* (частичное), replace*, delete*.
func NewSchema(repos Repositories, logger *log.Entry) (graphql.Schema, error) {
	if logger == nil {
		logger = log.New().WithField("component", "graphql")
	}
	types := newRecordTypes()
	queries := graphql.Fields{}
	mutations := graphql.Fields{}

	newCollection(repos.Orders, types.order, logger).register(queries, mutations)
	newCollection(repos.Containers, types.container, logger).register(queries, mutations)
	newCollection(repos.Goods, types.good, logger).register(queries, mutations)

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queries}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutations}),
	})
}

type collection[T domain.Record] struct {
	kind   domain.RecordKind
	repo   domain.RecordRepository[T]
	types  *typePair
	result *graphql.Union
	list   *graphql.Object
	logger *log.Entry
}

func newCollection[T domain.Record](repo domain.RecordRepository[T], types *typePair, logger *log.Entry) *collection[T] {
	var zero T
	kind := zero.Kind()
	name := title(string(kind))

	c := &collection[T]{
		kind:   kind,
		repo:   repo,
		types:  types,
		logger: logger.WithField("kind", string(kind)),
	}
	c.result = graphql.NewUnion(graphql.UnionConfig{
		Name:  name + "Result",
		Types: []*graphql.Object{types.out, errorResponseType},
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			switch p.Value.(type) {
			case T:
				return types.out
			default:
				return errorResponseType
			}
		},
	})
	c.list = graphql.NewObject(graphql.ObjectConfig{
		Name: name + "List",
		Fields: graphql.Fields{
			"items":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(types.out)))},
			"totalCount": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})
	return c
}

func (c *collection[T]) register(queries, mutations graphql.Fields) {
	name := title(string(c.kind))
	keyField := c.kind.KeyField()
	keyArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	body := &graphql.ArgumentConfig{Type: graphql.NewNonNull(c.types.in)}

	queries[c.kind.Collection()] = &graphql.Field{
		Type: c.list,
		Args: graphql.FieldConfigArgument{
			"filter": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(filterInputType))},
			"sort":   &graphql.ArgumentConfig{Type: sortInputType},
			"page":   &graphql.ArgumentConfig{Type: pageInputType},
		},
		Resolve: c.resolveList,
	}
	queries[string(c.kind)] = &graphql.Field{
		Type:    c.result,
		Args:    graphql.FieldConfigArgument{keyField: keyArg},
		Resolve: c.resolveGet,
	}

	mutations["create"+name] = &graphql.Field{
		Type:    c.result,
		Args:    graphql.FieldConfigArgument{string(c.kind): body},
		Resolve: c.resolveCreate,
	}
	mutations["update"+name] = &graphql.Field{
		Type:    c.result,
		Args:    graphql.FieldConfigArgument{keyField: keyArg, string(c.kind): body},
		Resolve: c.resolveUpdate,
	}
	mutations["replace"+name] = &graphql.Field{
		Type:    c.result,
		Args:    graphql.FieldConfigArgument{keyField: keyArg, string(c.kind): body},
		Resolve: c.resolveReplace,
	}
	mutations["delete"+name] = &graphql.Field{
		Type:    deleteResponseType,
		Args:    graphql.FieldConfigArgument{keyField: keyArg},
		Resolve: c.resolveDelete,
	}
}

func (c *collection[T]) resolveList(p graphql.ResolveParams) (any, error) {
	args := p.Args
	if sort, ok := args["sort"].(map[string]any); ok {
		if _, hasDirection := sort["direction"]; !hasDirection {
			sort["direction"] = sort["order"]
		}
	}
	q, err := query.FromDocument(args)
	if err != nil {
		return nil, c.failure(err, "list")
	}
	res, err := c.repo.List(p.Context, q)
	if err != nil {
		return nil, c.failure(err, "list")
	}
	return map[string]any{
		"items":      res.Items,
		"totalCount": res.TotalCount,
	}, nil
}

func (c *collection[T]) resolveGet(p graphql.ResolveParams) (any, error) {
	rec, err := c.repo.Get(p.Context, c.keyOf(p))
	return c.inBand(rec, err, "get")
}

func (c *collection[T]) resolveCreate(p graphql.ResolveParams) (any, error) {
	rec, err := domain.DecodeDocument[T](c.bodyOf(p))
	if err != nil {
		return c.inBand(rec, err, "create")
	}
	created, err := c.repo.Create(p.Context, rec)
	return c.inBand(created, err, "create")
}

func (c *collection[T]) resolveUpdate(p graphql.ResolveParams) (any, error) {
	updated, err := c.repo.Update(p.Context, c.keyOf(p), domain.Patch(c.bodyOf(p)))
	return c.inBand(updated, err, "update")
}

func (c *collection[T]) resolveReplace(p graphql.ResolveParams) (any, error) {
	rec, err := domain.DecodeDocument[T](c.bodyOf(p))
	if err != nil {
		return c.inBand(rec, err, "replace")
	}
	replaced, err := c.repo.Replace(p.Context, c.keyOf(p), rec)
	return c.inBand(replaced, err, "replace")
}

func (c *collection[T]) resolveDelete(p graphql.ResolveParams) (any, error) {
	res, err := c.repo.Delete(p.Context, c.keyOf(p))
	if err != nil {
		if !domain.CodeOf(err).Expected() {
			return nil, c.failure(err, "delete")
		}
		return domain.DeleteFailed(err), nil
	}
	return res, nil
}

func (c *collection[T]) keyOf(p graphql.ResolveParams) string {
	key, _ := p.Args[c.kind.KeyField()].(string)
	return key
}

func (c *collection[T]) bodyOf(p graphql.ResolveParams) map[string]any {
	body, _ := p.Args[string(c.kind)].(map[string]any)
	if body == nil {
		return map[string]any{}
	}
	return body
}

// inBand возвращает запись, ErrorResponse для ожидаемой ошибки или ошибку GraphQL.
func (c *collection[T]) inBand(rec T, err error, operation string) (any, error) {
	if err == nil {
		return rec, nil
	}
	if domain.CodeOf(err).Expected() {
		c.logger.WithError(err).WithField("operation", operation).Debug("request rejected")
		return errorResponse{Message: domain.MessageOf(err), Code: string(domain.CodeOf(err))}, nil
	}
	return nil, c.failure(err, operation)
}

// failure переводит неожиданную ошибку в ошибку GraphQL; причина сбоя
// хранилища остаётся только в логе.
func (c *collection[T]) failure(err error, operation string) error {
	entry := c.logger.WithError(err).WithField("operation", operation)
	if domain.CodeOf(err) == domain.CodeStorageFailure {
		entry.Error("graphql operation failed")
		return errors.New("internal error")
	}
	entry.Debug("graphql operation rejected")
	return errors.New(domain.MessageOf(err))
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
