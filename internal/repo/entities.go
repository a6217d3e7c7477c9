package repo

import "context"

// UserTable accesses the users table.
type UserTable struct{ table[User] }

func newUserTable(s *Store) *UserTable {
	return &UserTable{table[User]{
		store: s,
		name:  "users",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "name", name: "name", kind: kindText},
			{field: "email", name: "email", kind: kindText, filter: true},
			{field: "password", name: "password", kind: kindText},
			{field: "role", name: "role", kind: kindText, filter: true},
			{field: "status", name: "status", kind: kindText, filter: true},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(u *User) []any {
			return []any{&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Status, &u.CreatedAt}
		},
	}}
}

// GetByEmail returns the user with the exact email, or nil.
func (t *UserTable) GetByEmail(ctx context.Context, email string) (*User, error) {
	users, err := t.Filter(ctx, "email", email)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

// PlanTable accesses the plans table.
type PlanTable struct{ table[Plan] }

func newPlanTable(s *Store) *PlanTable {
	return &PlanTable{table[Plan]{
		store: s,
		name:  "plans",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "name", name: "name", kind: kindText},
			{field: "price", name: "price", kind: kindReal},
			{field: "duration", name: "duration", kind: kindInteger},
			{field: "features", name: "features", kind: kindText},
			{field: "status", name: "status", kind: kindText, filter: true},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(p *Plan) []any {
			return []any{&p.ID, &p.Name, &p.Price, &p.Duration, &p.Features, &p.Status, &p.CreatedAt}
		},
	}}
}

// ClientTable accesses the clients table.
type ClientTable struct{ table[Client] }

func newClientTable(s *Store) *ClientTable {
	return &ClientTable{table[Client]{
		store: s,
		name:  "clients",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "name", name: "name", kind: kindText},
			{field: "email", name: "email", kind: kindText, filter: true},
			{field: "phone", name: "phone", kind: kindText},
			{field: "planId", name: "plan_id", kind: kindText, filter: true},
			{field: "status", name: "status", kind: kindText, filter: true},
			{field: "nextBillingDate", name: "next_billing_date", kind: kindText},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(c *Client) []any {
			return []any{&c.ID, &c.Name, &c.Email, &c.Phone, &c.PlanID, &c.Status, &c.NextBillingDate, &c.CreatedAt}
		},
	}}
}

func (t *ClientTable) GetByStatus(ctx context.Context, status string) ([]Client, error) {
	return t.Filter(ctx, "status", status)
}

// InvoiceTable accesses the invoices table.
type InvoiceTable struct{ table[Invoice] }

func newInvoiceTable(s *Store) *InvoiceTable {
	return &InvoiceTable{table[Invoice]{
		store: s,
		name:  "invoices",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "clientId", name: "client_id", kind: kindText, filter: true},
			{field: "clientName", name: "client_name", kind: kindText},
			{field: "plan", name: "plan", kind: kindText},
			{field: "amount", name: "amount", kind: kindReal},
			{field: "dueDate", name: "due_date", kind: kindText},
			{field: "paidDate", name: "paid_date", kind: kindText},
			{field: "status", name: "status", kind: kindText, filter: true},
			{field: "paymentMethod", name: "payment_method", kind: kindText},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(i *Invoice) []any {
			return []any{&i.ID, &i.ClientID, &i.ClientName, &i.Plan, &i.Amount, &i.DueDate,
				&i.PaidDate, &i.Status, &i.PaymentMethod, &i.CreatedAt}
		},
	}}
}

func (t *InvoiceTable) GetByStatus(ctx context.Context, status string) ([]Invoice, error) {
	return t.Filter(ctx, "status", status)
}

func (t *InvoiceTable) GetByClient(ctx context.Context, clientID string) ([]Invoice, error) {
	return t.Filter(ctx, "clientId", clientID)
}

// ServerTable accesses the servers table.
type ServerTable struct{ table[Server] }

func newServerTable(s *Store) *ServerTable {
	return &ServerTable{table[Server]{
		store: s,
		name:  "servers",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "name", name: "name", kind: kindText},
			{field: "type", name: "type", kind: kindText, filter: true},
			{field: "url", name: "url", kind: kindText},
			{field: "token", name: "token", kind: kindText},
			{field: "secret", name: "secret", kind: kindText},
			{field: "status", name: "status", kind: kindText, filter: true},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(v *Server) []any {
			return []any{&v.ID, &v.Name, &v.Type, &v.URL, &v.Token, &v.Secret, &v.Status, &v.CreatedAt}
		},
	}}
}

// TemplateTable accesses the message_templates table.
type TemplateTable struct{ table[MessageTemplate] }

func newTemplateTable(s *Store) *TemplateTable {
	return &TemplateTable{table[MessageTemplate]{
		store: s,
		name:  "message_templates",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "name", name: "name", kind: kindText},
			{field: "message", name: "message", kind: kindText},
			{field: "category", name: "category", kind: kindText, filter: true},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(m *MessageTemplate) []any {
			return []any{&m.ID, &m.Name, &m.Message, &m.Category, &m.CreatedAt}
		},
	}}
}

func (t *TemplateTable) GetByCategory(ctx context.Context, category string) ([]MessageTemplate, error) {
	return t.Filter(ctx, "category", category)
}

// MessageTable accesses the message_history table.
type MessageTable struct{ table[MessageHistory] }

func newMessageTable(s *Store) *MessageTable {
	return &MessageTable{table[MessageHistory]{
		store: s,
		name:  "message_history",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "clientId", name: "client_id", kind: kindText, filter: true},
			{field: "client", name: "client", kind: kindText},
			{field: "message", name: "message", kind: kindText},
			{field: "sentAt", name: "sent_at", kind: kindText},
			{field: "status", name: "status", kind: kindText, filter: true},
			{field: "template", name: "template", kind: kindText},
		},
		dest: func(m *MessageHistory) []any {
			return []any{&m.ID, &m.ClientID, &m.Client, &m.Message, &m.SentAt, &m.Status, &m.Template}
		},
	}}
}

func (t *MessageTable) GetByClient(ctx context.Context, clientID string) ([]MessageHistory, error) {
	return t.Filter(ctx, "clientId", clientID)
}

// TransactionTable accesses the transactions table.
type TransactionTable struct{ table[Transaction] }

func newTransactionTable(s *Store) *TransactionTable {
	return &TransactionTable{table[Transaction]{
		store: s,
		name:  "transactions",
		columns: []column{
			{field: "id", name: "id", kind: kindText, filter: true},
			{field: "type", name: "type", kind: kindText, filter: true},
			{field: "amount", name: "amount", kind: kindReal},
			{field: "description", name: "description", kind: kindText},
			{field: "date", name: "date", kind: kindText, filter: true},
			{field: "createdAt", name: "created_at", kind: kindText},
		},
		dest: func(x *Transaction) []any {
			return []any{&x.ID, &x.Type, &x.Amount, &x.Description, &x.Date, &x.CreatedAt}
		},
	}}
}

func (t *TransactionTable) GetByType(ctx context.Context, typ string) ([]Transaction, error) {
	return t.Filter(ctx, "type", typ)
}
