package messaging

import (
	"math"
	"strconv"
	"strings"
	"time"

	"nextflow/internal/repo"
)

// Vars are the per-client values substituted into a message body.
type Vars struct {
	Name   string
	Plan   string
	Amount float64
	Date   string
	Days   int
}

// varsFor derives placeholder values for client; plan may be nil.
func varsFor(client repo.Client, plan *repo.Plan, now time.Time) Vars {
	v := Vars{Name: client.Name, Date: client.NextBillingDate}
	if plan != nil {
		v.Plan = plan.Name
		v.Amount = plan.Price
	}
	if due, err := time.Parse("2006-01-02", client.NextBillingDate); err == nil {
		v.Date = due.Format("02/01/2006")
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		v.Days = int(math.Round(due.Sub(today).Hours() / 24))
	}
	return v
}

// Render substitutes {nome} {plano} {valor} {data} {dias} in body. The
// English aliases {name} {plan} {amount} {date} {days} are accepted too.
// Unknown placeholders are left as written.
func Render(body string, v Vars) string {
	amount := "R$ " + formatAmount(v.Amount)
	days := strconv.Itoa(v.Days)
	r := strings.NewReplacer(
		"{nome}", v.Name, "{name}", v.Name,
		"{plano}", v.Plan, "{plan}", v.Plan,
		"{valor}", amount, "{amount}", amount,
		"{data}", v.Date, "{date}", v.Date,
		"{dias}", days, "{days}", days,
	)
	return r.Replace(body)
}

// formatAmount renders a value with a decimal comma and dot thousands separators.
func formatAmount(value float64) string {
	s := strconv.FormatFloat(math.Abs(value), 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if value < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
