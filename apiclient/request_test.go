package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	status := "pending"
	var missing *int

	tests := []struct {
		name  string
		base  string
		path  string
		query Query
		want  string
	}{
		{name: "plain", base: "http://localhost:8000", path: "/products", want: "http://localhost:8000/products"},
		{name: "trailing slash base", base: "http://localhost:8000/", path: "/products", want: "http://localhost:8000/products"},
		{name: "relative path", base: "http://localhost:8000/api/v1", path: "orders", want: "http://localhost:8000/api/v1/orders"},
		{name: "empty path", base: "http://localhost:8000", path: "", want: "http://localhost:8000"},
		{
			name:  "query sorted and nil skipped",
			base:  "http://x",
			path:  "/orders",
			query: Query{"status": &status, "page": 2, "supplier": nil, "limit": missing},
			want:  "http://x/orders?page=2&status=pending",
		},
		{
			name:  "slice becomes repeated keys",
			base:  "http://x",
			path:  "/products",
			query: Query{"category": []string{"dairy", "produce"}},
			want:  "http://x/products?category=dairy&category=produce",
		},
		{
			name:  "nil slice skipped",
			base:  "http://x",
			path:  "/products",
			query: Query{"category": []string(nil), "q": "kale & chard"},
			want:  "http://x/products?q=kale+%26+chard",
		},
		{
			name:  "merges with existing query",
			base:  "http://x",
			path:  "/products?sort=price",
			query: Query{"in_stock": true},
			want:  "http://x/products?in_stock=true&sort=price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildURL(tt.base, tt.path, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildURLInvalid(t *testing.T) {
	_, err := buildURL("http://[::1", "/x", nil)
	assert.Error(t, err)
}

func TestEncodeJSON(t *testing.T) {
	p, err := encodeJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, p.reader())

	p, err = encodeJSON(map[string]int{"qty": 3})
	require.NoError(t, err)
	assert.Equal(t, contentTypeJSON, p.contentType)
	assert.JSONEq(t, `{"qty":3}`, string(p.data))

	p, err = encodeJSON(json.RawMessage(`{"raw":true}`))
	require.NoError(t, err)
	assert.Equal(t, `{"raw":true}`, string(p.data))

	_, err = encodeJSON(func() {})
	assert.Error(t, err)
}

func TestPayloadReaderReplays(t *testing.T) {
	p := &payload{data: []byte("same bytes")}
	for range 2 {
		data, err := io.ReadAll(p.reader())
		require.NoError(t, err)
		assert.Equal(t, "same bytes", string(data))
	}
}

func TestEncodeMultipart(t *testing.T) {
	p, err := encodeMultipart(&Upload{
		File:   File{Filename: "logo.png", Content: strings.NewReader("png-bytes")},
		Fields: map[string]any{"supplier_id": "s-1", "primary": true, "note": nil},
	})
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(p.contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(bytes.NewReader(p.data), params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", part.FormName())
	assert.Equal(t, "logo.png", part.FileName())
	content, _ := io.ReadAll(part)
	assert.Equal(t, "png-bytes", string(content))

	var names []string
	values := map[string]string{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		v, _ := io.ReadAll(part)
		names = append(names, part.FormName())
		values[part.FormName()] = string(v)
	}
	assert.Equal(t, []string{"primary", "supplier_id"}, names)
	assert.Equal(t, "true", values["primary"])
	assert.Equal(t, "s-1", values["supplier_id"])
}

func TestEncodeMultipartCustomField(t *testing.T) {
	p, err := encodeMultipart(&Upload{File: File{FieldName: "avatar", Content: strings.NewReader("x")}})
	require.NoError(t, err)
	assert.Contains(t, string(p.data), `name="avatar"; filename="avatar"`)
}

func TestEncodeMultipartNilContent(t *testing.T) {
	_, err := encodeMultipart(&Upload{File: File{Filename: "a.txt"}})
	assert.Error(t, err)
}

func TestDecodeErrorBody(t *testing.T) {
	assert.Empty(t, decodeErrorBody(nil))
	assert.Empty(t, decodeErrorBody([]byte("   ")))
	assert.Empty(t, decodeErrorBody([]byte("<html>")))
	assert.Empty(t, decodeErrorBody([]byte("null")))
	assert.Empty(t, decodeErrorBody([]byte(`["array"]`)))
	assert.Equal(t, map[string]any{"message": "nope"}, decodeErrorBody([]byte(`{"message":"nope"}`)))
}

func TestDecodeInto(t *testing.T) {
	assert.NoError(t, decodeInto([]byte(`{"a":1}`), nil))

	var m map[string]int
	require.NoError(t, decodeInto([]byte(`{"a":1}`), &m))
	assert.Equal(t, 1, m["a"])

	var raw json.RawMessage
	require.NoError(t, decodeInto([]byte(`[1]`), &raw))
	assert.Equal(t, "[1]", string(raw))

	assert.Error(t, decodeInto([]byte("nope"), &m))
}
