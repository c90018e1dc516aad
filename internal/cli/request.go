package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iris-marketplace/iris-client/apiclient"
	"github.com/iris-marketplace/iris-client/endpoints"
)

const defaultConcurrency = 4

// pathResult pairs a requested path with its response when several paths
// are fetched at once.
type pathResult struct {
	Path     string          `json:"path"`
	Response json.RawMessage `json:"response,omitempty"`
}

func newGetCommand(a *app) *cobra.Command {
	var (
		query       []string
		concurrency int
		page        int
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "get PATH [PATH...]",
		Short: "Fetch one or more resources",
		Long: `Fetch one or more resources. Several paths are fetched concurrently and
printed as a JSON array in argument order; the first failure cancels the rest.`,
		Example: `  iris get /products -q category=produce --page 2
  iris get /orders/o-1 /orders/o-2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseKeyValues(query, true)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("page") || cmd.Flags().Changed("limit") {
				if q == nil {
					q = make(map[string]any, 2)
				}
				maps.Copy(q, endpoints.Pagination(page, limit))
			}
			return a.runGet(cmd.Context(), cmd.OutOrStdout(), args, q, concurrency)
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter key=value (repeatable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "maximum requests in flight")
	cmd.Flags().IntVar(&page, "page", endpoints.DefaultPage, "page number, sent with --limit")
	cmd.Flags().IntVar(&limit, "limit", endpoints.DefaultLimit, fmt.Sprintf("page size, capped at %d", endpoints.MaxLimit))

	return cmd
}

func (a *app) runGet(ctx context.Context, w io.Writer, paths []string, query map[string]any, concurrency int) error {
	results := make([]json.RawMessage, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, p := range paths {
		g.Go(func() error {
			raw, err := apiclient.GetAs[json.RawMessage](ctx, a.client, a.routes.Resolve(p), apiclient.Query(query))
			results[i] = raw
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(paths) == 1 {
		return printRaw(w, results[0])
	}
	out := make([]pathResult, len(paths))
	for i, p := range paths {
		out[i] = pathResult{Path: p, Response: results[i]}
	}
	return printJSON(w, out)
}

// newSendCommand builds post, put and patch.
func newSendCommand(a *app, method string) *cobra.Command {
	var data string

	name := strings.ToLower(method)
	cmd := &cobra.Command{
		Use:   name + " PATH",
		Short: fmt.Sprintf("Send a %s request with a JSON body", method),
		Example: fmt.Sprintf(`  iris %[1]s /cart/items --data '{"product_id":"p-1","quantity":2}'
  iris %[1]s /orders --data @order.json`, name),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(data, cmd.InOrStdin())
			if err != nil {
				return err
			}

			out, err := send(cmd.Context(), a.client, method, a.routes.Resolve(args[0]), body)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, @FILE to read a file or @- to read stdin")

	return cmd
}

func send(ctx context.Context, c apiclient.Client, method, path string, body any) (json.RawMessage, error) {
	switch method {
	case http.MethodPut:
		return apiclient.PutAs[json.RawMessage](ctx, c, path, body)
	case http.MethodPatch:
		return apiclient.PatchAs[json.RawMessage](ctx, c, path, body)
	default:
		return apiclient.PostAs[json.RawMessage](ctx, c, path, body)
	}
}

// readBody resolves --data. An empty value means no body.
func readBody(data string, stdin io.Reader) (any, error) {
	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	if name, ok := strings.CutPrefix(data, "@"); ok {
		var err error
		if name == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete PATH",
		Short:   "Delete a resource",
		Example: `  iris delete /cart/items/i-1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := apiclient.DeleteAs[json.RawMessage](cmd.Context(), a.client, a.routes.Resolve(args[0]))
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), out)
		},
	}
}

func newUploadCommand(a *app) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "upload PATH FILE",
		Short: "Upload a file as multipart/form-data",
		Long: `Upload FILE in the "file" form field together with any extra fields.
The body is built once and replayed unchanged on retries.`,
		Example: `  iris upload /suppliers/s-1/catalog ./catalog.csv -f season=summer`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseKeyValues(fields, false)
			if err != nil {
				return err
			}

			var out json.RawMessage
			if err := apiclient.UploadFileFromPath(cmd.Context(), a.client, a.routes.Resolve(args[0]), args[1], extra, &out); err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "extra form field key=value (repeatable)")

	return cmd
}
