package domain

// Weight — масса брутто/нетто контейнера.
type Weight struct {
	Gross float64 `json:"gross" validate:"gte=0"`
	Net   float64 `json:"net" validate:"gte=0"`
	Unit  string  `json:"unit"`
}

// Dimensions — габариты упаковки.
type Dimensions struct {
	Length float64 `json:"length" validate:"gte=0"`
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
	Unit   string  `json:"unit"`
}

// Packaging описывает вид упаковки груза.
type Packaging struct {
	Kind       string     `json:"kind"`
	Dimensions Dimensions `json:"dimensions"`
}

// Cargo — содержимое контейнера.
type Cargo struct {
	Description string    `json:"description"`
	PalletCount float64   `json:"palletCount" validate:"gte=0"`
	Packaging   Packaging `json:"packaging"`
}

// Container — морской контейнер. OrderNumber и GoodNumber — мягкие ссылки,
// существование заказа и товара не проверяется.
type Container struct {
	ContainerNumber string `json:"containerNumber" validate:"required,container_number"`
	OrderNumber     string `json:"orderNumber" validate:"required"`
	Type            string `json:"type" validate:"required"`
	Weight          Weight `json:"weight"`
	GoodNumber      string `json:"goodNumber"`
	Cargo           Cargo  `json:"cargo"`
}

func (Container) Kind() RecordKind { return KindContainer }

func (c Container) Key() string { return c.ContainerNumber }

var _ Record = Container{}
