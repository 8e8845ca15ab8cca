package grpcsvc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// Client — типизированный клиент сервиса одной коллекции.
type Client[T domain.Record] struct {
	conn grpc.ClientConnInterface
	kind domain.RecordKind
}

// NewClient создаёт клиента поверх открытого соединения.
func NewClient[T domain.Record](conn grpc.ClientConnInterface) *Client[T] {
	var zero T
	return &Client[T]{conn: conn, kind: zero.Kind()}
}

// Get запрашивает запись по ключу.
func (c *Client[T]) Get(ctx context.Context, key string) (T, error) {
	resp, err := c.invoke(ctx, "Get"+title(string(c.kind)), map[string]any{c.kind.KeyField(): key})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.recordFrom(resp)
}

// List выполняет выборку с фильтром, сортировкой и пагинацией.
func (c *Client[T]) List(ctx context.Context, q domain.Query) (domain.ListResult[T], error) {
	resp, err := c.invoke(ctx, "List"+title(c.kind.Collection()), queryDocument(q))
	if err != nil {
		return domain.ListResult[T]{}, err
	}

	raw := resp.GetFields()[c.kind.Collection()].GetListValue().GetValues()
	items := make([]T, 0, len(raw))
	for _, v := range raw {
		rec, err := domain.DecodeDocument[T](v.GetStructValue().AsMap())
		if err != nil {
			return domain.ListResult[T]{}, err
		}
		items = append(items, rec)
	}
	return domain.ListResult[T]{
		Items:      items,
		TotalCount: int(resp.GetFields()["totalCount"].GetNumberValue()),
	}, nil
}

// Create создаёт запись.
func (c *Client[T]) Create(ctx context.Context, rec T) (T, error) {
	body, err := domain.ToDocument(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	resp, err := c.invoke(ctx, "Create"+title(string(c.kind)), map[string]any{string(c.kind): body})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.recordFrom(resp)
}

// Update отправляет частичное обновление.
func (c *Client[T]) Update(ctx context.Context, key string, patch domain.Patch) (T, error) {
	resp, err := c.invoke(ctx, "Update"+title(string(c.kind)), map[string]any{
		c.kind.KeyField(): key,
		string(c.kind):    map[string]any(patch),
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.recordFrom(resp)
}

// Replace полностью заменяет запись.
func (c *Client[T]) Replace(ctx context.Context, key string, rec T) (T, error) {
	body, err := domain.ToDocument(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	resp, err := c.invoke(ctx, "Replace"+title(string(c.kind)), map[string]any{
		c.kind.KeyField(): key,
		string(c.kind):    body,
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.recordFrom(resp)
}

// Delete удаляет запись; отказ по ожидаемой причине приходит в DeleteResult.
func (c *Client[T]) Delete(ctx context.Context, key string) (domain.DeleteResult, error) {
	resp, err := c.invoke(ctx, "Delete"+title(string(c.kind)), map[string]any{c.kind.KeyField(): key})
	if err != nil {
		return domain.DeleteResult{}, err
	}
	fields := resp.GetFields()
	return domain.DeleteResult{
		Success: fields["success"].GetBoolValue(),
		Message: fields["message"].GetStringValue(),
		Code:    fields["code"].GetStringValue(),
	}, nil
}

func (c *Client[T]) invoke(ctx context.Context, method string, body map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(c.kind, method), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client[T]) recordFrom(resp *structpb.Struct) (T, error) {
	body := resp.GetFields()[string(c.kind)].GetStructValue()
	if body == nil {
		var zero T
		return zero, fmt.Errorf("response has no %s", c.kind)
	}
	return domain.DecodeDocument[T](body.AsMap())
}

func queryDocument(q domain.Query) map[string]any {
	doc := map[string]any{}
	if len(q.Filter) > 0 {
		clauses := make([]any, 0, len(q.Filter))
		for _, clause := range q.Filter {
			clauses = append(clauses, map[string]any{
				"field":     clause.Field,
				"operation": string(clause.Operation),
				"value":     clause.Value,
			})
		}
		doc["filter"] = clauses
	}
	if q.Sort != nil {
		doc["sort"] = map[string]any{
			"field":     q.Sort.Field,
			"direction": string(q.Sort.Direction),
		}
	}
	if q.Page != nil {
		doc["page"] = map[string]any{
			"limit":  q.Page.Limit,
			"offset": q.Page.Offset,
		}
	}
	return doc
}
