package validation

import (
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleLine struct {
	SKU string `json:"sku" validate:"required"`
}

type sampleRequest struct {
	Lines  []sampleLine `json:"lines" validate:"dive"`
	Name   string       `json:"name" validate:"required,max=5"`
	Reason string       `json:"reason" validate:"omitempty,oneof=A B"`
	Count  int          `json:"count" validate:"gte=1"`
}

type amountRequest struct {
	Quantity decimal.Decimal  `json:"quantity" validate:"scale=4"`
	Price    *decimal.Decimal `json:"price" validate:"omitempty,scale=4"`
}

func TestStruct(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, Struct(sampleRequest{Name: "ok", Count: 1}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := Struct(sampleRequest{Name: "toolong", Reason: "C"})
		require.Error(t, err)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Contains(t, err.Error(), "name must be at most 5 characters")
		assert.Contains(t, err.Error(), "reason must be one of [A B]")
		assert.Contains(t, err.Error(), "count must be >= 1")
	})

	t.Run("reports nested paths", func(t *testing.T) {
		err := Struct(sampleRequest{Name: "ok", Count: 1, Lines: []sampleLine{{SKU: "A"}, {}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lines[1].sku is required")
	})

	t.Run("decimal places", func(t *testing.T) {
		fine := decimal.RequireFromString("2.12345")
		tests := []struct {
			name    string
			req     amountRequest
			wantErr string
		}{
			{name: "four places", req: amountRequest{Quantity: decimal.RequireFromString("1.2345")}},
			{name: "trailing zeros", req: amountRequest{Quantity: decimal.RequireFromString("1.50000")}},
			{name: "nil pointer", req: amountRequest{Quantity: decimal.NewFromInt(3)}},
			{name: "five places", req: amountRequest{Quantity: decimal.RequireFromString("0.00001")}, wantErr: "quantity must have at most 4 decimal places"},
			{name: "pointer field", req: amountRequest{Quantity: decimal.NewFromInt(1), Price: &fine}, wantErr: "price must have at most 4 decimal places"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := Struct(tt.req)
				if tt.wantErr == "" {
					assert.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})
}
