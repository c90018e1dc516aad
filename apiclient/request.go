package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

const defaultUploadField = "file"

// payload is a request body encoded once and replayed on every attempt.
type payload struct {
	data        []byte
	contentType string
}

func (p *payload) reader() io.Reader {
	if p == nil {
		return nil
	}
	return bytes.NewReader(p.data)
}

// buildURL joins base and path, then appends query parameters.
func buildURL(base, path string, query Query) (string, error) {
	full := strings.TrimRight(base, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		full += "/"
	}
	full += path

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", full, err)
	}
	if len(query) == 0 {
		return u.String(), nil
	}

	values := u.Query()
	appendQuery(values, query)
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// appendQuery adds query entries to values in key order, skipping nil values.
func appendQuery(values url.Values, query Query) {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		rv, ok := deref(query[k])
		if !ok {
			continue
		}
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := range rv.Len() {
				if item, ok := deref(rv.Index(i).Interface()); ok {
					values.Add(k, fmt.Sprint(item.Interface()))
				}
			}
			continue
		}
		values.Add(k, fmt.Sprint(rv.Interface()))
	}
}

// deref unwraps pointers and interfaces, reporting false for nil.
func deref(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return reflect.Value{}, false
	}
	return rv, true
}

// encodeJSON encodes body for a JSON request. A nil body yields no payload.
func encodeJSON(body any) (*payload, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return &payload{data: raw, contentType: contentTypeJSON}, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &payload{data: data, contentType: contentTypeJSON}, nil
}

// encodeMultipart builds a multipart/form-data body holding the file part
// followed by the extra fields in key order. Nil fields are skipped.
func encodeMultipart(up *Upload) (*payload, error) {
	if up.File.Content == nil {
		return nil, fmt.Errorf("upload file content is nil")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	field := up.File.FieldName
	if field == "" {
		field = defaultUploadField
	}
	filename := up.File.Filename
	if filename == "" {
		filename = field
	}

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, up.File.Content); err != nil {
		return nil, fmt.Errorf("read upload content: %w", err)
	}

	keys := make([]string, 0, len(up.Fields))
	for k := range up.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rv, ok := deref(up.Fields[k])
		if !ok {
			continue
		}
		if err := w.WriteField(k, fmt.Sprint(rv.Interface())); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return &payload{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

// decodeErrorBody parses an error response body, falling back to an empty map.
func decodeErrorBody(body []byte) map[string]any {
	parsed := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return parsed
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed == nil {
		return map[string]any{}
	}
	return parsed
}
