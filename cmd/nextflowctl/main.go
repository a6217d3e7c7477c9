// Command nextflowctl reads and edits records through the admin API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nextflow/internal/apiclient"
)

const usage = `usage: nextflowctl [-api URL] [-timeout D] <command> <entity> [args]

commands:
  list   <entity> [field=value]
  get    <entity> <id>
  create <entity> <json>
  update <entity> <id> <json>
  delete <entity> <id>

entities: users plans clients invoices servers templates messages transactions
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("nextflowctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	apiURL := fs.String("api", envOr("NEXTFLOW_API", "http://localhost:8080/api"), "API root URL")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return errors.New(usage)
	}
	cmd, entity := rest[0], rest[1]
	params := rest[2:]

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := apiclient.New(*apiURL, nil)
	records := apiclient.NewCollection[map[string]any](client, entity)

	switch cmd {
	case "list":
		if len(params) == 0 {
			items, err := records.Items(ctx)
			if err != nil {
				return err
			}
			return printJSON(out, items)
		}
		field, value, ok := strings.Cut(params[0], "=")
		if !ok {
			return fmt.Errorf("filter must be field=value, got %q", params[0])
		}
		var items []map[string]any
		if err := client.List(ctx, entity, url.Values{field: {value}}, &items); err != nil {
			return err
		}
		return printJSON(out, items)

	case "get":
		if len(params) != 1 {
			return errors.New("get needs an id")
		}
		var row map[string]any
		if err := client.Get(ctx, entity, params[0], &row); err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%s %s not found", entity, params[0])
		}
		return printJSON(out, row)

	case "create":
		if len(params) != 1 {
			return errors.New("create needs a json body")
		}
		body, err := parseBody(params[0])
		if err != nil {
			return err
		}
		id, err := records.Create(ctx, body)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %s %s (%d total)\n", entity, id, len(records.Snapshot()))
		return nil

	case "update":
		if len(params) != 2 {
			return errors.New("update needs an id and a json body")
		}
		body, err := parseBody(params[1])
		if err != nil {
			return err
		}
		if err := records.Update(ctx, params[0], body); err != nil {
			return err
		}
		fmt.Fprintf(out, "updated %s %s\n", entity, params[0])
		return nil

	case "delete":
		if len(params) != 1 {
			return errors.New("delete needs an id")
		}
		if err := records.Delete(ctx, params[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s %s (%d left)\n", entity, params[0], len(records.Snapshot()))
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func parseBody(raw string) (map[string]any, error) {
	var body map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	return body, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
