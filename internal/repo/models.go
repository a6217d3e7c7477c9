package repo

// Fields carries a full row (create) or a partial row (update) keyed by JSON field name.
type Fields map[string]any

// User roles and account statuses.
const (
	RoleAdmin  = "admin"
	RoleClient = "cliente"

	StatusActive   = "ativo"
	StatusInactive = "inativo"
)

// Client statuses.
const (
	ClientActive    = "ativo"
	ClientSuspended = "suspenso"
	ClientCancelled = "cancelado"
)

// Invoice statuses.
const (
	InvoiceOverdue  = "vencido"
	InvoiceUpcoming = "a-vencer"
	InvoicePaid     = "pago"
)

// Server types.
const (
	ServerClub       = "club"
	ServerPainelFast = "painel-fast"
)

// Message template categories.
const (
	CategoryBilling   = "cobrança"
	CategoryWelcome   = "boas-vindas"
	CategorySupport   = "suporte"
	CategoryMarketing = "marketing"
)

// Message history statuses.
const (
	MessageSent   = "enviado"
	MessageRead   = "lido"
	MessageFailed = "falhou"
)

// Transaction types.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// User represents the users table row.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// Plan represents a billing tier. Features is an opaque serialized list.
type Plan struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Duration  int64   `json:"duration"`
	Features  string  `json:"features"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// Client represents a billed subscriber.
type Client struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	PlanID          *string `json:"planId"`
	Status          string  `json:"status"`
	NextBillingDate string  `json:"nextBillingDate"`
	CreatedAt       string  `json:"createdAt"`
}

// Invoice is a billing event. ClientName and Plan are snapshots taken when
// the invoice was written and are never refreshed from the source rows.
type Invoice struct {
	ID            string  `json:"id"`
	ClientID      string  `json:"clientId"`
	ClientName    string  `json:"clientName"`
	Plan          string  `json:"plan"`
	Amount        float64 `json:"amount"`
	DueDate       string  `json:"dueDate"`
	PaidDate      *string `json:"paidDate"`
	Status        string  `json:"status"`
	PaymentMethod *string `json:"paymentMethod"`
	CreatedAt     string  `json:"createdAt"`
}

// Server holds the credentials of a subscriber panel endpoint.
type Server struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	URL       *string `json:"url"`
	Token     string  `json:"token"`
	Secret    string  `json:"secret"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// MessageTemplate is a reusable message body; placeholders are stored verbatim.
type MessageTemplate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	CreatedAt string `json:"createdAt"`
}

// MessageHistory is a sent-message record. Client and Template are name snapshots.
type MessageHistory struct {
	ID       string  `json:"id"`
	ClientID *string `json:"clientId"`
	Client   string  `json:"client"`
	Message  string  `json:"message"`
	SentAt   string  `json:"sentAt"`
	Status   string  `json:"status"`
	Template *string `json:"template"`
}

// Transaction is a ledger line.
type Transaction struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
}
