package pdf

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(func() Provider { return NewMarotoProvider() }),
)

// Provider renders order documents.
type Provider interface {
	OrderReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

// ReceiptItem is one formatted receipt line.
type ReceiptItem struct {
	Description string
	Qty         int
	UnitPrice   string
	Amount      string
}

// ReceiptData carries pre-formatted values; amounts are already rendered as money strings.
type ReceiptData struct {
	GymName          string
	OrderNumber      string
	DatePaid         string
	CustomerName     string
	CustomerEmail    string
	PaymentReference string
	Items            []ReceiptItem
	Subtotal         string
	Total            string
}
