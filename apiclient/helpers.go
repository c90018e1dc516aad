package apiclient

import (
	"context"
	"os"
	"path/filepath"
)

// GetAs performs a GET and decodes the response into a T
func GetAs[T any](ctx context.Context, c Client, path string, query Query) (T, error) {
	var out T
	err := c.Get(ctx, path, query, &out)
	return out, err
}

// PostAs performs a POST and decodes the response into a T
func PostAs[T any](ctx context.Context, c Client, path string, body any) (T, error) {
	var out T
	err := c.Post(ctx, path, body, &out)
	return out, err
}

// PutAs performs a PUT and decodes the response into a T
func PutAs[T any](ctx context.Context, c Client, path string, body any) (T, error) {
	var out T
	err := c.Put(ctx, path, body, &out)
	return out, err
}

// PatchAs performs a PATCH and decodes the response into a T
func PatchAs[T any](ctx context.Context, c Client, path string, body any) (T, error) {
	var out T
	err := c.Patch(ctx, path, body, &out)
	return out, err
}

// DeleteAs performs a DELETE and decodes the response into a T
func DeleteAs[T any](ctx context.Context, c Client, path string) (T, error) {
	var out T
	err := c.Delete(ctx, path, &out)
	return out, err
}

// UploadFileFromPath uploads the file at name, using its base name as the
// multipart filename.
func UploadFileFromPath(ctx context.Context, c Client, path, name string, fields map[string]any, out any) error {
	f, err := os.Open(name)
	if err != nil {
		return newUnknownError("failed to open upload file", err)
	}
	defer f.Close()

	return c.UploadFile(ctx, path, File{Filename: filepath.Base(name), Content: f}, fields, out)
}
