package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type kind int

const (
	kindText kind = iota
	kindInteger
	kindReal
)

// column binds a JSON field to its SQL column.
type column struct {
	field  string
	name   string
	kind   kind
	filter bool
}

// table is the shared engine behind every entity accessor. dest returns
// pointers to the fields of a row in the same order as columns.
type table[T any] struct {
	store   *Store
	name    string
	columns []column
	dest    func(*T) []any
}

func (t *table[T]) selectList() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = quote(c.name)
	}
	return strings.Join(names, ", ")
}

func (t *table[T]) lookup(field string) (column, bool) {
	for _, c := range t.columns {
		if c.field == field {
			return c, true
		}
	}
	return column{}, false
}

// GetAll returns every row. An empty table yields an empty, non-nil slice.
func (t *table[T]) GetAll(ctx context.Context) ([]T, error) {
	var out []T
	err := t.observe("get_all", func() error {
		query := fmt.Sprintf("SELECT %s FROM %s", t.selectList(), quote(t.name))
		var err error
		out, err = t.query(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return out, nil
}

// GetByID returns the row with the given id, or nil when absent.
func (t *table[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var out *T
	err := t.observe("get_by_id", func() error {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			t.selectList(), quote(t.name), quote("id"), t.store.dialect.placeholder(1))
		var row T
		if err := t.store.db.QueryRowContext(ctx, query, id).Scan(t.dest(&row)...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t.name, id, err)
	}
	return out, nil
}

// Create inserts a row from fields. Columns left out fall back to schema defaults.
func (t *table[T]) Create(ctx context.Context, fields Fields) (string, error) {
	id, err := idFrom(fields)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", t.name, err)
	}

	names := []string{quote("id")}
	args := []any{id}
	for _, c := range t.columns {
		if c.field == "id" {
			continue
		}
		raw, ok := fields[c.field]
		if !ok {
			continue
		}
		v, err := coerce(c, raw)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", t.name, err)
		}
		names = append(names, quote(c.name))
		args = append(args, v)
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = t.store.dialect.placeholder(i + 1)
	}

	err = t.observe("create", func() error {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(t.name), strings.Join(names, ", "), strings.Join(placeholders, ", "))
		_, err := t.store.db.ExecContext(ctx, query, args...)
		return classify(err)
	})
	if err != nil {
		return "", fmt.Errorf("create %s: %w", t.name, err)
	}
	return id, nil
}

// Update writes only the known fields present in fields. A missing row or an
// empty change set succeeds without touching the store.
func (t *table[T]) Update(ctx context.Context, id string, fields Fields) error {
	var (
		sets []string
		args []any
	)
	for _, c := range t.columns {
		if c.field == "id" {
			continue
		}
		raw, ok := fields[c.field]
		if !ok {
			continue
		}
		v, err := coerce(c, raw)
		if err != nil {
			return fmt.Errorf("update %s %s: %w", t.name, id, err)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", quote(c.name), t.store.dialect.placeholder(len(args))))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	err := t.observe("update", func() error {
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			quote(t.name), strings.Join(sets, ", "), quote("id"), t.store.dialect.placeholder(len(args)))
		_, err := t.store.db.ExecContext(ctx, query, args...)
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", t.name, id, err)
	}
	return nil
}

// Delete removes the row with id if it exists.
func (t *table[T]) Delete(ctx context.Context, id string) error {
	err := t.observe("delete", func() error {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			quote(t.name), quote("id"), t.store.dialect.placeholder(1))
		_, err := t.store.db.ExecContext(ctx, query, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, id, err)
	}
	return nil
}

// Filter returns rows whose field equals value. Only filterable fields are accepted.
func (t *table[T]) Filter(ctx context.Context, field, value string) ([]T, error) {
	c, ok := t.lookup(field)
	if !ok || !c.filter {
		return nil, fmt.Errorf("filter %s: %w: %s", t.name, ErrUnknownField, field)
	}
	var out []T
	err := t.observe("filter", func() error {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			t.selectList(), quote(t.name), quote(c.name), t.store.dialect.placeholder(1))
		var err error
		out, err = t.query(ctx, query, value)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("filter %s by %s: %w", t.name, field, err)
	}
	return out, nil
}

func (t *table[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var row T
		if err := rows.Scan(t.dest(&row)...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (t *table[T]) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if m := t.store.metrics; m != nil {
		status := "ok"
		if err != nil {
			status = "error"
			m.Errors.WithLabelValues("repo").Inc()
		}
		m.StoreOperations.WithLabelValues(t.name, op, status).Inc()
		m.StoreLatency.WithLabelValues(t.name, op).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		t.store.logger.Debug("store operation failed", "table", t.name, "op", op, "error", err)
	}
	return err
}

func idFrom(fields Fields) (string, error) {
	raw, ok := fields["id"]
	if !ok || raw == nil {
		return uuid.NewString(), nil
	}
	v, err := coerce(column{field: "id", name: "id", kind: kindText}, raw)
	if err != nil {
		return "", err
	}
	id, _ := v.(string)
	if strings.TrimSpace(id) == "" {
		return uuid.NewString(), nil
	}
	return id, nil
}

// coerce converts a decoded JSON value into the driver value for c.
func coerce(c column, raw any) (any, error) {
	if p, ok := raw.(*string); ok {
		if p == nil {
			return nil, nil
		}
		raw = *p
	}
	if raw == nil {
		return nil, nil
	}
	switch c.kind {
	case kindText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case bool:
			return strconv.FormatBool(v), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s: %v", ErrSchemaViolation, c.field, err)
			}
			return string(b), nil
		}
	case kindInteger:
		switch v := raw.(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
			if f, err := v.Float64(); err == nil {
				if n, ok := integral(f); ok {
					return n, nil
				}
			}
		case float64:
			if n, ok := integral(v); ok {
				return n, nil
			}
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, nil
			}
		}
		return nil, fmt.Errorf("%w: field %s expects an integer, got %v", ErrSchemaViolation, c.field, raw)
	case kindReal:
		switch v := raw.(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, nil
			}
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
		}
		return nil, fmt.Errorf("%w: field %s expects a number, got %v", ErrSchemaViolation, c.field, raw)
	}
	return nil, fmt.Errorf("%w: field %s", ErrSchemaViolation, c.field)
}

// integral converts f when it is a whole number inside the int64 range.
func integral(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func quote(ident string) string {
	return `"` + ident + `"`
}
