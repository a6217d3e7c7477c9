package repo

import "context"

// Access is the operation vocabulary every entity table exposes.
type Access[T any] interface {
	// GetAll returns every row in the store's natural scan order.
	GetAll(ctx context.Context) ([]T, error)
	// GetByID returns nil without error when no row matches.
	GetByID(ctx context.Context, id string) (*T, error)
	// Create inserts one row and returns its id, generating one when fields carry none.
	Create(ctx context.Context, fields Fields) (string, error)
	// Update merges fields into the row; a missing id is a successful no-op.
	Update(ctx context.Context, id string, fields Fields) error
	// Delete removes the row if present; dependent rows are left untouched.
	Delete(ctx context.Context, id string) error
	// Filter returns the rows whose field equals value.
	Filter(ctx context.Context, field, value string) ([]T, error)
}

var (
	_ Access[User]            = (*UserTable)(nil)
	_ Access[Plan]            = (*PlanTable)(nil)
	_ Access[Client]          = (*ClientTable)(nil)
	_ Access[Invoice]         = (*InvoiceTable)(nil)
	_ Access[Server]          = (*ServerTable)(nil)
	_ Access[MessageTemplate] = (*TemplateTable)(nil)
	_ Access[MessageHistory]  = (*MessageTable)(nil)
	_ Access[Transaction]     = (*TransactionTable)(nil)
)
