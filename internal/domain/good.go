package domain

// Good — товар с количеством и заявленной стоимостью.
type Good struct {
	GoodNumber string  `json:"goodNumber" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Quantity   float64 `json:"quantity" validate:"gte=0"`
	Unit       string  `json:"unit" validate:"required"`
	Value      float64 `json:"value" validate:"gte=0"`
}

func (Good) Kind() RecordKind { return KindGood }

func (g Good) Key() string { return g.GoodNumber }

var _ Record = Good{}
