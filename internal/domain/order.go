package domain

// Address — почтовый адрес клиента.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Client описывает заказчика перевозки.
type Client struct {
	Name    string  `json:"name" validate:"required"`
	TaxID   string  `json:"taxId" validate:"required,tax_id"`
	Address Address `json:"address"`
}

// Port — порт погрузки или назначения.
type Port struct {
	Name         string `json:"name"`
	LocationCode string `json:"locationCode" validate:"required,location_code"`
}

// Schedule хранит плановые даты маршрута.
type Schedule struct {
	LoadingDate          string `json:"loadingDate" validate:"omitempty,date"`
	DepartureDate        string `json:"departureDate" validate:"omitempty,date"`
	EstimatedArrivalDate string `json:"estimatedArrivalDate" validate:"omitempty,date"`
}

// Route связывает порты и расписание.
type Route struct {
	OriginPort      Port     `json:"originPort"`
	DestinationPort Port     `json:"destinationPort"`
	Schedule        Schedule `json:"schedule"`
}

// Order — заказ на перевозку. Ключ — OrderNumber в формате NNNNNN-NNNN.
type Order struct {
	OrderNumber string `json:"orderNumber" validate:"required,order_number"`
	CreatedAt   string `json:"createdAt" validate:"required,date"`
	Status      string `json:"status" validate:"required"`
	Client      Client `json:"client"`
	Route       Route  `json:"route"`
}

func (Order) Kind() RecordKind { return KindOrder }

func (o Order) Key() string { return o.OrderNumber }

var _ Record = Order{}
