// Package grpcsvc публикует коллекции записей как gRPC-сервисы
// logistics.v1.{Order,Container,Good}Service. Сгенерированного кода нет:
// ServiceDesc собирается вручную, сообщения — google.protobuf.Struct.
package grpcsvc

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

const (
	servicePackage = "logistics.v1"
	descMetadata   = "logistics/v1/records.proto"
)

// RecordHandler — серверная сторона одного сервиса коллекции.
type RecordHandler interface {
	Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Replace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type handlerCall func(h RecordHandler, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Method описывает один RPC коллекции.
type Method struct {
	Name string
	call handlerCall
}

// ServiceName возвращает полное имя сервиса, например logistics.v1.OrderService.
func ServiceName(kind domain.RecordKind) string {
	return fmt.Sprintf("%s.%sService", servicePackage, title(string(kind)))
}

// Methods возвращает RPC коллекции в фиксированном порядке:
// Get<X>, List<X>s, Create<X>, Update<X>, Replace<X>, Delete<X>.
func Methods(kind domain.RecordKind) []Method {
	name := title(string(kind))
	return []Method{
		{Name: "Get" + name, call: RecordHandler.Get},
		{Name: "List" + title(kind.Collection()), call: RecordHandler.List},
		{Name: "Create" + name, call: RecordHandler.Create},
		{Name: "Update" + name, call: RecordHandler.Update},
		{Name: "Replace" + name, call: RecordHandler.Replace},
		{Name: "Delete" + name, call: RecordHandler.Delete},
	}
}

// FullMethod возвращает путь RPC для grpc.ClientConn.Invoke.
func FullMethod(kind domain.RecordKind, method string) string {
	return "/" + ServiceName(kind) + "/" + method
}

// ServiceDesc собирает описание сервиса коллекции.
func ServiceDesc(kind domain.RecordKind) *grpc.ServiceDesc {
	serviceName := ServiceName(kind)
	methods := Methods(kind)

	desc := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*RecordHandler)(nil),
		Methods:     make([]grpc.MethodDesc, 0, len(methods)),
		Streams:     []grpc.StreamDesc{},
		Metadata:    descMetadata,
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m.Name,
			Handler:    unaryHandler("/"+serviceName+"/"+m.Name, m.call),
		})
	}
	return desc
}

func unaryHandler(fullMethod string, call handlerCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := srv.(RecordHandler)
		if interceptor == nil {
			return call(handler, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(handler, ctx, req.(*structpb.Struct))
		})
	}
}

// Register регистрирует сервисы всех трёх коллекций.
func Register(
	server grpc.ServiceRegistrar,
	orders domain.RecordRepository[domain.Order],
	containers domain.RecordRepository[domain.Container],
	goods domain.RecordRepository[domain.Good],
	logger *log.Entry,
) {
	if logger == nil {
		logger = log.New().WithField("component", "grpc")
	}
	server.RegisterService(ServiceDesc(domain.KindOrder), NewRecordService(orders, logger))
	server.RegisterService(ServiceDesc(domain.KindContainer), NewRecordService(containers, logger))
	server.RegisterService(ServiceDesc(domain.KindGood), NewRecordService(goods, logger))
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
