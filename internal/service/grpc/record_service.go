package grpcsvc

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/query"
)

// RecordService реализует gRPC API одной коллекции поверх domain.RecordRepository.
// Запросы и ответы передаются как google.protobuf.Struct.
type RecordService[T domain.Record] struct {
	kind   domain.RecordKind
	repo   domain.RecordRepository[T]
	logger *log.Entry
}

// NewRecordService конструирует сервис с зависимостями.
func NewRecordService[T domain.Record](repo domain.RecordRepository[T], logger *log.Entry) *RecordService[T] {
	var zero T
	kind := zero.Kind()
	if logger == nil {
		logger = log.New().WithField("component", "grpc-record-service")
	}
	return &RecordService[T]{
		kind:   kind,
		repo:   repo,
		logger: logger.WithField("kind", string(kind)),
	}
}

// Get принимает {"<keyField>": "..."} и возвращает {"<kind>": {...}}.
func (s *RecordService[T]) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := s.keyOf(req)
	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, s.toStatus(err, "Get", key)
	}
	return s.recordResponse(rec)
}

// List принимает {"filter": [...], "sort": {...}, "page": {...}} и возвращает
// {"<collection>": [...], "totalCount": n}.
func (s *RecordService[T]) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := query.FromDocument(req.AsMap())
	if err != nil {
		return nil, s.toStatus(err, "List", "")
	}
	res, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, s.toStatus(err, "List", "")
	}

	items := make([]any, 0, len(res.Items))
	for _, rec := range res.Items {
		doc, err := domain.ToDocument(rec)
		if err != nil {
			return nil, s.internal(err, "List", rec.Key())
		}
		items = append(items, doc)
	}
	resp, err := structpb.NewStruct(map[string]any{
		s.kind.Collection(): items,
		"totalCount":        float64(res.TotalCount),
	})
	if err != nil {
		return nil, s.internal(err, "List", "")
	}
	return resp, nil
}

// Create принимает {"<kind>": {...}}.
func (s *RecordService[T]) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.recordOf(req)
	if err != nil {
		return nil, s.toStatus(err, "Create", "")
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, s.toStatus(err, "Create", rec.Key())
	}
	return s.recordResponse(created)
}

// Update принимает {"<keyField>": "...", "<kind>": {частичные поля}}.
func (s *RecordService[T]) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := s.keyOf(req)
	body, err := s.bodyOf(req)
	if err != nil {
		return nil, s.toStatus(err, "Update", key)
	}
	updated, err := s.repo.Update(ctx, key, domain.Patch(body))
	if err != nil {
		return nil, s.toStatus(err, "Update", key)
	}
	return s.recordResponse(updated)
}

// Replace принимает {"<keyField>": "...", "<kind>": {полная запись}}.
func (s *RecordService[T]) Replace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := s.keyOf(req)
	rec, err := s.recordOf(req)
	if err != nil {
		return nil, s.toStatus(err, "Replace", key)
	}
	replaced, err := s.repo.Replace(ctx, key, rec)
	if err != nil {
		return nil, s.toStatus(err, "Replace", key)
	}
	return s.recordResponse(replaced)
}

// Delete отвечает DeleteResult: ожидаемые ошибки возвращаются внутри ответа
// (success=false и код), сбои хранилища — статусом Internal.
func (s *RecordService[T]) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := s.keyOf(req)
	res, err := s.repo.Delete(ctx, key)
	if err != nil {
		if !domain.CodeOf(err).Expected() {
			return nil, s.toStatus(err, "Delete", key)
		}
		s.logger.WithError(err).WithField("key", key).Debug("delete rejected")
		res = domain.DeleteFailed(err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"success": res.Success,
		"message": res.Message,
		"code":    res.Code,
	})
	if err != nil {
		return nil, s.internal(err, "Delete", key)
	}
	return resp, nil
}

func (s *RecordService[T]) keyOf(req *structpb.Struct) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[s.kind.KeyField()].GetStringValue()
}

func (s *RecordService[T]) bodyOf(req *structpb.Struct) (map[string]any, error) {
	body := req.GetFields()[string(s.kind)].GetStructValue()
	if body == nil {
		return nil, domain.NewValidationError("%s is required", s.kind)
	}
	return body.AsMap(), nil
}

func (s *RecordService[T]) recordOf(req *structpb.Struct) (T, error) {
	body, err := s.bodyOf(req)
	if err != nil {
		var zero T
		return zero, err
	}
	return domain.DecodeDocument[T](body)
}

func (s *RecordService[T]) recordResponse(rec T) (*structpb.Struct, error) {
	doc, err := domain.ToDocument(rec)
	if err != nil {
		return nil, s.internal(err, "encode", rec.Key())
	}
	resp, err := structpb.NewStruct(map[string]any{string(s.kind): doc})
	if err != nil {
		return nil, s.internal(err, "encode", rec.Key())
	}
	return resp, nil
}

// toStatus переводит ошибку ядра в gRPC status.
func (s *RecordService[T]) toStatus(err error, operation, key string) error {
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"key":       key,
	})

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedOperation):
		entry.Debug("invalid request")
		return status.Error(codes.InvalidArgument, domain.MessageOf(err))
	case errors.Is(err, domain.ErrNotFound):
		entry.Debug("record not found")
		return status.Error(codes.NotFound, domain.MessageOf(err))
	case errors.Is(err, domain.ErrConflict):
		entry.Debug("record already exists")
		return status.Error(codes.AlreadyExists, domain.MessageOf(err))
	default:
		entry.Error("record operation failed")
		return status.Errorf(codes.Internal, "failed to %s %s", strings.ToLower(operation), s.kind)
	}
}

func (s *RecordService[T]) internal(err error, operation, key string) error {
	s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"key":       key,
	}).Error("failed to build response")
	return status.Error(codes.Internal, "failed to build response")
}
