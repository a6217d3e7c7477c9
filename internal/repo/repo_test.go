package repo

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nextflow/internal/logging"
	"nextflow/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "test.db")
	store, err := Open(ctx, path, "", logging.Discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.RunMigrations(ctx, migrations.Files))
	return store
}

func TestCreateThenGetByIDReturnsRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Plans().Create(ctx, Fields{
		"id":       "p1",
		"name":     "Basic",
		"price":    json.Number("29.9"),
		"duration": json.Number("30"),
		"features": []any{"hd", "2 telas"},
		"status":   StatusActive,
	})
	require.NoError(t, err)
	require.Equal(t, "p1", id)

	plan, err := store.Plans().GetByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Equal(t, "Basic", plan.Name)
	require.Equal(t, 29.9, plan.Price)
	require.Equal(t, int64(30), plan.Duration)
	require.Equal(t, `["hd","2 telas"]`, plan.Features)
	require.Equal(t, StatusActive, plan.Status)
	require.NotEmpty(t, plan.CreatedAt)
}

func TestCreateGeneratesIDAndAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Servers().Create(ctx, Fields{
		"name":   "Main",
		"type":   ServerClub,
		"token":  "tok",
		"secret": "sec",
	})
	require.NoError(t, err)
	require.Len(t, id, 36)

	srv, err := store.Servers().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, srv)
	require.Equal(t, StatusActive, srv.Status)
	require.Nil(t, srv.URL)
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	user, err := store.Users().GetByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestGetAllEmptyTableReturnsEmptySlice(t *testing.T) {
	store := newTestStore(t)

	rows, err := store.Transactions().GetAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Clients().Create(ctx, Fields{
		"id":              "c1",
		"name":            "Ana",
		"email":           "ana@example.com",
		"phone":           "5511999990000",
		"planId":          "p1",
		"status":          ClientActive,
		"nextBillingDate": "2024-07-01",
	})
	require.NoError(t, err)

	require.NoError(t, store.Clients().Update(ctx, "c1", Fields{"status": ClientSuspended, "unknown": "x"}))

	client, err := store.Clients().GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, ClientSuspended, client.Status)
	require.Equal(t, "Ana", client.Name)
	require.Equal(t, "5511999990000", client.Phone)
	require.NotNil(t, client.PlanID)
	require.Equal(t, "p1", *client.PlanID)

	require.NoError(t, store.Clients().Update(ctx, "c1", Fields{"planId": nil}))
	client, err = store.Clients().GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, client.PlanID)
}

func TestUpdateIgnoresIDAndMissingRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Templates().Create(ctx, Fields{"id": "t1", "name": "Lembrete", "message": "Olá {name}", "category": CategoryBilling})
	require.NoError(t, err)

	require.NoError(t, store.Templates().Update(ctx, "t1", Fields{"id": "t2"}))
	tpl, err := store.Templates().GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, tpl)
	require.Equal(t, "Olá {name}", tpl.Message)

	require.NoError(t, store.Templates().Update(ctx, "missing", Fields{"name": "x"}))
	all, err := store.Templates().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Plans().Create(ctx, Fields{"id": "p1", "name": "A", "price": 10, "duration": 30, "features": "[]"})
	require.NoError(t, err)

	require.NoError(t, store.Plans().Delete(ctx, "ghost"))
	require.NoError(t, store.Plans().Delete(ctx, "p1"))
	require.NoError(t, store.Plans().Delete(ctx, "p1"))

	plans, err := store.Plans().GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, plans)
}

func TestDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Users().Create(ctx, Fields{"id": "u1", "name": "A", "email": "a@x.com", "password": "secret1", "role": RoleAdmin})
	require.NoError(t, err)

	_, err = store.Users().Create(ctx, Fields{"id": "u2", "name": "B", "email": "a@x.com", "password": "secret2", "role": RoleClient})
	require.ErrorIs(t, err, ErrUniqueViolation)

	users, err := store.Users().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "u1", users[0].ID)

	found, err := store.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "u1", found.ID)
}

func TestDuplicatePrimaryKeyRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fields := Fields{"id": "x1", "type": TransactionIncome, "amount": 10, "description": "a", "date": "2024-01-01"}
	_, err := store.Transactions().Create(ctx, fields)
	require.NoError(t, err)
	_, err = store.Transactions().Create(ctx, fields)
	require.ErrorIs(t, err, ErrUniqueViolation)
}

func TestSchemaViolations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Clients().Create(ctx, Fields{"name": "A", "email": "a", "phone": "1", "status": "bogus", "nextBillingDate": "2024-01-01"})
	require.ErrorIs(t, err, ErrSchemaViolation)

	_, err = store.Plans().Create(ctx, Fields{"name": "A", "price": "cheap", "duration": 30, "features": "[]"})
	require.ErrorIs(t, err, ErrSchemaViolation)

	_, err = store.Plans().Create(ctx, Fields{"name": "A", "price": 1, "duration": json.Number("1.5"), "features": "[]"})
	require.ErrorIs(t, err, ErrSchemaViolation)

	_, err = store.Invoices().Create(ctx, Fields{"clientId": "c1", "amount": 10})
	require.ErrorIs(t, err, ErrSchemaViolation)

	for _, huge := range []any{json.Number("1e20"), json.Number("-1e19"), 1e19, "99999999999999999999"} {
		_, err = store.Plans().Create(ctx, Fields{"name": "A", "price": 1, "duration": huge, "features": "[]"})
		require.ErrorIs(t, err, ErrSchemaViolation, "duration %v", huge)
	}
	plans, err := store.Plans().GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, plans)
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, f := range []Fields{
		{"id": "i1", "clientId": "c1", "clientName": "Ana", "plan": "Basic", "amount": 30, "dueDate": "2024-01-10", "status": InvoicePaid},
		{"id": "i2", "clientId": "c1", "clientName": "Ana", "plan": "Basic", "amount": 30, "dueDate": "2024-02-10", "status": InvoiceOverdue},
		{"id": "i3", "clientId": "c2", "clientName": "Bia", "plan": "Pro", "amount": 50, "dueDate": "2024-02-10", "status": InvoiceOverdue},
	} {
		_, err := store.Invoices().Create(ctx, f)
		require.NoError(t, err)
	}

	overdue, err := store.Invoices().GetByStatus(ctx, InvoiceOverdue)
	require.NoError(t, err)
	require.Len(t, overdue, 2)

	byClient, err := store.Invoices().GetByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, byClient, 2)

	none, err := store.Invoices().GetByClient(ctx, "zzz")
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)

	_, err = store.Invoices().Filter(ctx, "amount", "30")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestInvoiceSnapshotSurvivesClientRename(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Clients().Create(ctx, Fields{"id": "c1", "name": "Ana", "email": "a@x.com", "phone": "1", "status": ClientActive, "nextBillingDate": "2024-01-01"})
	require.NoError(t, err)
	_, err = store.Invoices().Create(ctx, Fields{"id": "i1", "clientId": "c1", "clientName": "Ana", "plan": "Basic", "amount": 30, "dueDate": "2024-01-10", "status": InvoiceUpcoming})
	require.NoError(t, err)

	require.NoError(t, store.Clients().Update(ctx, "c1", Fields{"name": "Ana Maria"}))
	require.NoError(t, store.Clients().Delete(ctx, "c1"))

	inv, err := store.Invoices().GetByID(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, inv)
	require.Equal(t, "Ana", inv.ClientName)
	require.Equal(t, "c1", inv.ClientID)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RunMigrations(context.Background(), migrations.Files))
}

// Money columns must be 8-byte floats on every dialect; a Postgres REAL is float4.
func TestMoneyColumnsAreDoublePrecision(t *testing.T) {
	ddl, err := fs.ReadFile(migrations.Files, "001_init.sql")
	require.NoError(t, err)
	require.NotRegexp(t, `(?i)\bREAL\b`, string(ddl))
	for _, col := range []string{"price DOUBLE PRECISION", "amount DOUBLE PRECISION"} {
		require.Contains(t, string(ddl), col)
	}

	ctx := context.Background()
	store := newTestStore(t)
	_, err = store.Transactions().Create(ctx, Fields{"id": "t1", "type": TransactionIncome, "amount": json.Number("1234.57"), "description": "x", "date": "2024-01-01"})
	require.NoError(t, err)
	tx, err := store.Transactions().GetByID(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 1234.57, tx.Amount)
}

func TestCoerceText(t *testing.T) {
	c := column{field: "f", name: "f", kind: kindText}
	cases := map[string]struct {
		in   any
		want any
	}{
		"string": {"abc", "abc"},
		"nil":    {nil, nil},
		"number": {json.Number("12.5"), "12.5"},
		"bool":   {true, "true"},
		"array":  {[]any{"a", "b"}, `["a","b"]`},
		"object": {map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := coerce(c, tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
