package domain

import (
	"errors"
	"strings"
	"testing"
)

func sampleOrder() Order {
	return Order{
		OrderNumber: "123456-7890",
		CreatedAt:   "2024-03-01",
		Status:      "NEW",
		Client: Client{
			Name:  "Baltic Trade",
			TaxID: "123-456-78-90",
			Address: Address{
				Street:     "Portowa 1",
				City:       "Gdansk",
				PostalCode: "80-001",
				Country:    "PL",
			},
		},
		Route: Route{
			OriginPort:      Port{Name: "Gdansk", LocationCode: "PLGDN"},
			DestinationPort: Port{Name: "Hamburg", LocationCode: "DEHAM"},
			Schedule: Schedule{
				LoadingDate:          "2024-03-05",
				DepartureDate:        "2024-03-06",
				EstimatedArrivalDate: "2024-03-09",
			},
		},
	}
}

func sampleContainer() Container {
	return Container{
		ContainerNumber: "ABCU1234567",
		OrderNumber:     "123456-7890",
		Type:            "dry",
		Weight:          Weight{Gross: 12000, Net: 10000, Unit: "kg"},
		GoodNumber:      "G-1",
		Cargo: Cargo{
			Description: "coffee",
			PalletCount: 20,
			Packaging: Packaging{
				Kind:       "bags",
				Dimensions: Dimensions{Length: 1.2, Width: 0.8, Height: 1, Unit: "m"},
			},
		},
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr string
	}{
		{name: "valid order", rec: sampleOrder()},
		{name: "valid container", rec: sampleContainer()},
		{name: "valid good", rec: Good{GoodNumber: "G-1", Name: "Coffee", Quantity: 10, Unit: "kg", Value: 99.5}},
		{
			name:    "malformed order number",
			rec:     func() Order { o := sampleOrder(); o.OrderNumber = "abc-123"; return o }(),
			wantErr: "invalid order number format",
		},
		{
			name:    "bad tax id",
			rec:     func() Order { o := sampleOrder(); o.Client.TaxID = "12345"; return o }(),
			wantErr: "client.taxId has invalid format (tax_id)",
		},
		{
			name:    "missing status",
			rec:     func() Order { o := sampleOrder(); o.Status = ""; return o }(),
			wantErr: "status is required",
		},
		{
			name:    "bad destination location",
			rec:     func() Order { o := sampleOrder(); o.Route.DestinationPort.LocationCode = "hamburg"; return o }(),
			wantErr: "route.destinationPort.locationCode has invalid format",
		},
		{
			name:    "created at in foreign layout",
			rec:     func() Order { o := sampleOrder(); o.CreatedAt = "01.03.2024"; return o }(),
			wantErr: "createdAt has invalid format (date)",
		},
		{
			name:    "unreadable loading date",
			rec:     func() Order { o := sampleOrder(); o.Route.Schedule.LoadingDate = "next week"; return o }(),
			wantErr: "route.schedule.loadingDate has invalid format (date)",
		},
		{
			name: "schedule dates may be empty",
			rec: func() Order {
				o := sampleOrder()
				o.Route.Schedule = Schedule{}
				return o
			}(),
		},
		{
			name:    "negative weight",
			rec:     func() Container { c := sampleContainer(); c.Weight.Gross = -1; return c }(),
			wantErr: "weight.gross must be >= 0",
		},
		{
			name:    "good without unit",
			rec:     Good{GoodNumber: "G-1", Name: "Coffee"},
			wantErr: "unit is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.rec)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRecordKindNames(t *testing.T) {
	if KindOrder.Collection() != "orders" || KindContainer.Collection() != "containers" || KindGood.Collection() != "goods" {
		t.Fatal("unexpected collection names")
	}
	if KindContainer.KeyField() != "containerNumber" {
		t.Fatalf("KeyField() = %s", KindContainer.KeyField())
	}
}

func TestParseSortDirection(t *testing.T) {
	tests := map[string]SortDirection{
		"":           SortAscending,
		"asc":        SortAscending,
		"ASCENDING":  SortAscending,
		"desc":       SortDescending,
		"Descending": SortDescending,
	}
	for input, want := range tests {
		got, err := ParseSortDirection(input)
		if err != nil || got != want {
			t.Errorf("ParseSortDirection(%q) = %s, %v; want %s", input, got, err, want)
		}
	}
	if _, err := ParseSortDirection("up"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
