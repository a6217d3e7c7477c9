package dashboard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nextflow/internal/logging"
	"nextflow/internal/repo"
	"nextflow/migrations"
)

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()
	store, err := repo.Open(ctx, filepath.Join(t.TempDir(), "dash.db"), "", logger, nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RunMigrations(ctx, migrations.Files))

	create := func(tbl interface {
		Create(context.Context, repo.Fields) (string, error)
	}, f repo.Fields) {
		_, err := tbl.Create(ctx, f)
		require.NoError(t, err)
	}

	for _, st := range []string{repo.ClientActive, repo.ClientActive, repo.ClientSuspended, repo.ClientCancelled} {
		create(store.Clients(), repo.Fields{"name": "c", "email": "c@x", "phone": "1", "status": st, "nextBillingDate": "2024-01-01"})
	}
	for _, inv := range []struct {
		status string
		amount float64
	}{{repo.InvoiceOverdue, 30}, {repo.InvoiceOverdue, 20}, {repo.InvoiceUpcoming, 50}, {repo.InvoicePaid, 100}} {
		create(store.Invoices(), repo.Fields{"clientId": "c", "clientName": "c", "plan": "p", "amount": inv.amount, "dueDate": "2024-01-01", "status": inv.status})
	}
	create(store.Transactions(), repo.Fields{"type": repo.TransactionIncome, "amount": 300, "description": "mensalidades", "date": "2024-01-05"})
	create(store.Transactions(), repo.Fields{"type": repo.TransactionExpense, "amount": 120.5, "description": "servidor", "date": "2024-01-06"})
	create(store.Messages(), repo.Fields{"client": "c", "message": "oi", "status": repo.MessageRead})
	create(store.Messages(), repo.Fields{"client": "c", "message": "oi", "status": repo.MessageFailed})
	create(store.Plans(), repo.Fields{"name": "Basic", "price": 30, "duration": 30, "features": "[]"})

	s, err := Summarize(ctx, store)
	require.NoError(t, err)

	require.Equal(t, 4, s.Clients.Total)
	require.Equal(t, 2, s.Clients.Active)
	require.Equal(t, 1, s.Clients.Suspended)
	require.Equal(t, 1, s.Clients.Cancelled)
	require.Equal(t, InvoiceTotals{Count: 2, Amount: 50}, s.Invoices.Overdue)
	require.Equal(t, InvoiceTotals{Count: 1, Amount: 50}, s.Invoices.Upcoming)
	require.Equal(t, InvoiceTotals{Count: 1, Amount: 100}, s.Invoices.Paid)
	require.InDelta(t, 300, s.Finance.Income, 0.001)
	require.InDelta(t, 120.5, s.Finance.Expense, 0.001)
	require.InDelta(t, 179.5, s.Finance.Balance, 0.001)
	require.Equal(t, 1, s.Messages.Delivered)
	require.Equal(t, 1, s.Messages.Failed)
	require.Equal(t, 1, s.Plans)
	require.Equal(t, 0, s.Servers)
}

func TestSummarizeEmptyStore(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()
	store, err := repo.Open(ctx, filepath.Join(t.TempDir(), "empty.db"), "", logger, nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RunMigrations(ctx, migrations.Files))

	s, err := Summarize(ctx, store)
	require.NoError(t, err)
	require.Zero(t, s.Clients.Total)
	require.Zero(t, s.Finance.Balance)
}
