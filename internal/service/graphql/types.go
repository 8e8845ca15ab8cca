package graphqlapi

import (
	"github.com/graphql-go/graphql"
)

// typePair — выходной объект и соответствующий ему input-тип с теми же полями.
// Поля input-типов необязательные: обязательность проверяет валидатор записей,
// а его ошибки возвращаются в ErrorResponse.
type typePair struct {
	out *graphql.Object
	in  *graphql.InputObject
}

type field struct {
	name    string
	scalar  *graphql.Scalar
	nested  *typePair
	nonNull bool
}

func str(name string) field { return field{name: name, scalar: graphql.String} }
func num(name string) field { return field{name: name, scalar: graphql.Float} }
func key(name string) field { return field{name: name, scalar: graphql.String, nonNull: true} }
func obj(name string, t *typePair) field { return field{name: name, nested: t} }

func newTypePair(name string, fields ...field) *typePair {
	outFields := graphql.Fields{}
	inFields := graphql.InputObjectConfigFieldMap{}
	for _, f := range fields {
		var out graphql.Output
		var in graphql.Input
		if f.nested != nil {
			out, in = f.nested.out, f.nested.in
		} else {
			out, in = f.scalar, f.scalar
		}
		if f.nonNull {
			out = graphql.NewNonNull(out)
		}
		outFields[f.name] = &graphql.Field{Type: out}
		inFields[f.name] = &graphql.InputObjectFieldConfig{Type: in}
	}
	return &typePair{
		out: graphql.NewObject(graphql.ObjectConfig{Name: name, Fields: outFields}),
		in:  graphql.NewInputObject(graphql.InputObjectConfig{Name: name + "Input", Fields: inFields}),
	}
}

// recordTypes описывает GraphQL-типы всех записей.
type recordTypes struct {
	order     *typePair
	container *typePair
	good      *typePair
}

func newRecordTypes() recordTypes {
	address := newTypePair("Address", str("street"), str("city"), str("postalCode"), str("country"))
	client := newTypePair("Client", str("name"), str("taxId"), obj("address", address))
	port := newTypePair("Port", str("name"), str("locationCode"))
	schedule := newTypePair("Schedule", str("loadingDate"), str("departureDate"), str("estimatedArrivalDate"))
	route := newTypePair("Route", obj("originPort", port), obj("destinationPort", port), obj("schedule", schedule))

	weight := newTypePair("Weight", num("gross"), num("net"), str("unit"))
	dimensions := newTypePair("Dimensions", num("length"), num("width"), num("height"), str("unit"))
	packaging := newTypePair("Packaging", str("kind"), obj("dimensions", dimensions))
	cargo := newTypePair("Cargo", str("description"), num("palletCount"), obj("packaging", packaging))

	return recordTypes{
		order: newTypePair("Order",
			key("orderNumber"), str("createdAt"), str("status"),
			obj("client", client), obj("route", route),
		),
		container: newTypePair("Container",
			key("containerNumber"), str("orderNumber"), str("type"),
			obj("weight", weight), str("goodNumber"), obj("cargo", cargo),
		),
		good: newTypePair("Good",
			key("goodNumber"), str("name"), num("quantity"), str("unit"), num("value"),
		),
	}
}

var (
	errorResponseType = graphql.NewObject(graphql.ObjectConfig{
		Name: "ErrorResponse",
		Fields: graphql.Fields{
			"message": &graphql.Field{Type: graphql.String},
			"code":    &graphql.Field{Type: graphql.String},
		},
	})

	deleteResponseType = graphql.NewObject(graphql.ObjectConfig{
		Name: "DeleteResponse",
		Fields: graphql.Fields{
			"success": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"message": &graphql.Field{Type: graphql.String},
			"code":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	filterInputType = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "FilterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"field":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"operation": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"value":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	// order — прежнее имя direction, принимается для совместимости.
	sortInputType = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "SortInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"field":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"direction": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"order":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	pageInputType = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PageInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"limit":  &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"offset": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		},
	})
)

// errorResponse — ожидаемая ошибка, возвращаемая внутри ответа.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
