package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iris-marketplace/iris-client/apiclient"
)

// errorBody is how a failed API call is reported on stderr.
type errorBody struct {
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// PrintError reports err on w. API errors are written as JSON.
func PrintError(w io.Writer, err error) {
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		_ = printJSON(w, errorBody{
			Message: apiErr.Message,
			Status:  apiErr.Status,
			Code:    apiErr.Code,
			Details: apiErr.Details,
		})
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRaw indents a response body. Empty bodies print nothing; bodies that
// are not JSON are written unchanged.
func printRaw(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// parseKeyValues parses key=value pairs. With multi set, repeated keys
// collect into a []string; otherwise the last value wins.
func parseKeyValues(pairs []string, multi bool) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		prev, seen := out[key]
		switch {
		case !seen || !multi:
			out[key] = value
		case isStringSlice(prev):
			out[key] = append(prev.([]string), value)
		default:
			out[key] = []string{prev.(string), value}
		}
	}
	return out, nil
}

func isStringSlice(v any) bool {
	_, ok := v.([]string)
	return ok
}
