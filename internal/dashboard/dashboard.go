package dashboard

import (
	"context"
	"fmt"

	"nextflow/internal/repo"
)

// InvoiceTotals counts invoices in one status and sums their amounts.
type InvoiceTotals struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Summary is the overview shown on the admin home screen.
type Summary struct {
	Clients struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Suspended int `json:"suspended"`
		Cancelled int `json:"cancelled"`
	} `json:"clients"`
	Invoices struct {
		Overdue  InvoiceTotals `json:"overdue"`
		Upcoming InvoiceTotals `json:"upcoming"`
		Paid     InvoiceTotals `json:"paid"`
	} `json:"invoices"`
	Finance struct {
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
		Balance float64 `json:"balance"`
	} `json:"finance"`
	Messages struct {
		Delivered int `json:"delivered"`
		Failed    int `json:"failed"`
	} `json:"messages"`
	Plans   int `json:"plans"`
	Servers int `json:"servers"`
}

// Summarize reads every table once and aggregates the current state.
func Summarize(ctx context.Context, store *repo.Store) (*Summary, error) {
	var s Summary

	clients, err := store.Clients().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize clients: %w", err)
	}
	s.Clients.Total = len(clients)
	for _, c := range clients {
		switch c.Status {
		case repo.ClientActive:
			s.Clients.Active++
		case repo.ClientSuspended:
			s.Clients.Suspended++
		case repo.ClientCancelled:
			s.Clients.Cancelled++
		}
	}

	invoices, err := store.Invoices().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize invoices: %w", err)
	}
	for _, inv := range invoices {
		var bucket *InvoiceTotals
		switch inv.Status {
		case repo.InvoiceOverdue:
			bucket = &s.Invoices.Overdue
		case repo.InvoiceUpcoming:
			bucket = &s.Invoices.Upcoming
		case repo.InvoicePaid:
			bucket = &s.Invoices.Paid
		default:
			continue
		}
		bucket.Count++
		bucket.Amount += inv.Amount
	}

	txs, err := store.Transactions().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}
	for _, tx := range txs {
		switch tx.Type {
		case repo.TransactionIncome:
			s.Finance.Income += tx.Amount
		case repo.TransactionExpense:
			s.Finance.Expense += tx.Amount
		}
	}
	s.Finance.Balance = s.Finance.Income - s.Finance.Expense

	messages, err := store.Messages().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize messages: %w", err)
	}
	for _, m := range messages {
		if m.Status == repo.MessageFailed {
			s.Messages.Failed++
		} else {
			s.Messages.Delivered++
		}
	}

	plans, err := store.Plans().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize plans: %w", err)
	}
	s.Plans = len(plans)

	servers, err := store.Servers().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize servers: %w", err)
	}
	s.Servers = len(servers)

	return &s, nil
}
