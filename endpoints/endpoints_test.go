package endpoints

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnprefixedRoutes(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{Auth.Login(), "/auth/login"},
		{Auth.Profile(), "/auth/profile"},
		{Products.List(), "/products"},
		{Products.Detail("p-1"), "/products/p-1"},
		{Products.Search(), "/products/search"},
		{Suppliers.Products("s-1"), "/suppliers/s-1/products"},
		{Suppliers.Reviews("s-1"), "/suppliers/s-1/reviews"},
		{Restaurants.Update(), "/restaurants/profile"},
		{Orders.Cancel("o-1"), "/orders/o-1/cancel"},
		{Cart.UpdateItem("i-1"), "/cart/items/i-1"},
		{Cart.Clear(), "/cart/clear"},
		{Messages.MarkRead("m-1"), "/messages/m-1/read"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}
}

func TestIDsAreEscaped(t *testing.T) {
	assert.Equal(t, "/products/a%2Fb", Products.Detail("a/b"))
	assert.Equal(t, "/orders/o%201/cancel", Orders.Cancel("o 1"))
	assert.Equal(t, "/messages/%3Fx/read", Messages.MarkRead("?x"))
}

func TestWithPrefix(t *testing.T) {
	for _, prefix := range []string{"/api/v1", "api/v1", "/api/v1/"} {
		c := WithPrefix(prefix)
		assert.Equal(t, "/api/v1/orders/o-1", c.Orders.Detail("o-1"), prefix)
		assert.Equal(t, "/api/v1/cart", c.Cart.Get(), prefix)
	}

	assert.Equal(t, "/auth/login", WithPrefix("").Auth.Login())
	assert.Equal(t, "/auth/login", WithPrefix("/").Auth.Login())
}

func TestResolve(t *testing.T) {
	c := WithPrefix(DefaultPrefix)
	assert.Equal(t, DefaultPrefix, c.Prefix())

	tests := []struct {
		in   string
		want string
	}{
		{"/products", "/api/v1/products"},
		{"products", "/api/v1/products"},
		{"", "/api/v1/"},
		{"/api/v1/orders", "/api/v1/orders"},
		{"/api/v1", "/api/v1"},
		{"/api/v1?page=2", "/api/v1?page=2"},
		{"/api/v10/x", "/api/v1/api/v10/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Resolve(tt.in), tt.in)
	}

	assert.Equal(t, "/cart", WithPrefix("").Resolve("cart"))
}

func TestTable(t *testing.T) {
	table := WithPrefix(DefaultPrefix).Table()
	assert.NotEmpty(t, table)

	names := map[string]bool{}
	for _, r := range table {
		assert.False(t, names[r.Name], "duplicate route %s", r.Name)
		names[r.Name] = true
		assert.True(t, strings.HasPrefix(r.Pattern, DefaultPrefix+"/"), r.Pattern)
		assert.NotEmpty(t, r.Method)
	}
	assert.True(t, names["orders.cancel"])

	for _, r := range table {
		if r.Name == "products.detail" {
			assert.Equal(t, "/api/v1/products/:id", r.Pattern)
		}
	}
}

func TestPagination(t *testing.T) {
	assert.Equal(t, map[string]any{"page": 1, "limit": 20}, Pagination(0, 0))
	assert.Equal(t, map[string]any{"page": 3, "limit": 50}, Pagination(3, 50))
	assert.Equal(t, map[string]any{"page": 1, "limit": 100}, Pagination(-1, 500))
}
