// Package endpoints is the catalogue of server-relative routes exposed by the
// Iris marketplace backend.
//
// Routes are built from an optional prefix and path-escaped IDs:
//
//	endpoints.Products.Detail("p-1")                          // "/products/p-1"
//	endpoints.WithPrefix(endpoints.DefaultPrefix).Orders.Cancel("o 2") // "/api/v1/orders/o%202/cancel"
package endpoints

import (
	"net/url"
	"strings"
)

// DefaultPrefix is the versioned API mount point used by the backend.
const DefaultPrefix = "/api/v1"

// Pagination defaults shared by list endpoints.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Catalog groups every route family under a common prefix.
type Catalog struct {
	prefix string

	Auth        AuthRoutes
	Products    ProductRoutes
	Suppliers   SupplierRoutes
	Restaurants RestaurantRoutes
	Orders      OrderRoutes
	Cart        CartRoutes
	Messages    MessageRoutes
}

// Unprefixed route families.
var (
	Auth        = AuthRoutes{}
	Products    = ProductRoutes{}
	Suppliers   = SupplierRoutes{}
	Restaurants = RestaurantRoutes{}
	Orders      = OrderRoutes{}
	Cart        = CartRoutes{}
	Messages    = MessageRoutes{}
)

// WithPrefix returns a catalogue whose routes start with prefix.
// Surrounding slashes are normalized, so "api/v1/" and "/api/v1" are equivalent.
func WithPrefix(prefix string) Catalog {
	p := normalizePrefix(prefix)
	return Catalog{
		prefix:      p,
		Auth:        AuthRoutes{prefix: p},
		Products:    ProductRoutes{prefix: p},
		Suppliers:   SupplierRoutes{prefix: p},
		Restaurants: RestaurantRoutes{prefix: p},
		Orders:      OrderRoutes{prefix: p},
		Cart:        CartRoutes{prefix: p},
		Messages:    MessageRoutes{prefix: p},
	}
}

// Prefix returns the normalized prefix, "" when there is none.
func (c Catalog) Prefix() string {
	return c.prefix
}

// Resolve places a caller-supplied path under the catalogue prefix. Paths
// already carrying the prefix are returned as is.
func (c Catalog) Resolve(path string) string {
	if path == "" {
		path = "/"
	} else if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if c.prefix == "" || path == c.prefix || strings.HasPrefix(path, c.prefix+"/") || strings.HasPrefix(path, c.prefix+"?") {
		return path
	}
	return c.prefix + path
}

func normalizePrefix(prefix string) string {
	p := strings.Trim(prefix, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// join builds prefix + "/" + segments, escaping each dynamic segment.
func join(prefix, static string, ids ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(static)
	for _, id := range ids {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(id))
	}
	return b.String()
}

// Pagination returns page and limit query parameters, clamped to the
// backend's accepted range.
func Pagination(page, limit int) map[string]any {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return map[string]any{"page": page, "limit": limit}
}

// AuthRoutes covers session management.
type AuthRoutes struct{ prefix string }

func (r AuthRoutes) Login() string { return join(r.prefix, "/auth/login") }
func (r AuthRoutes) Register() string { return join(r.prefix, "/auth/register") }
func (r AuthRoutes) Refresh() string { return join(r.prefix, "/auth/refresh") }
func (r AuthRoutes) Logout() string { return join(r.prefix, "/auth/logout") }
func (r AuthRoutes) Profile() string { return join(r.prefix, "/auth/profile") }

// ProductRoutes covers the product catalogue.
type ProductRoutes struct{ prefix string }

func (r ProductRoutes) List() string { return join(r.prefix, "/products") }
func (r ProductRoutes) Detail(id string) string { return join(r.prefix, "/products", id) }
func (r ProductRoutes) Create() string { return r.List() }
func (r ProductRoutes) Update(id string) string { return r.Detail(id) }
func (r ProductRoutes) Delete(id string) string { return r.Detail(id) }
func (r ProductRoutes) Search() string { return join(r.prefix, "/products/search") }
func (r ProductRoutes) Categories() string { return join(r.prefix, "/products/categories") }

// SupplierRoutes covers supplier listings and contact.
type SupplierRoutes struct{ prefix string }

func (r SupplierRoutes) List() string { return join(r.prefix, "/suppliers") }
func (r SupplierRoutes) Detail(id string) string { return join(r.prefix, "/suppliers", id) }
func (r SupplierRoutes) Products(id string) string { return r.Detail(id) + "/products" }
func (r SupplierRoutes) Reviews(id string) string { return r.Detail(id) + "/reviews" }
func (r SupplierRoutes) Contact(id string) string { return r.Detail(id) + "/contact" }

// RestaurantRoutes covers restaurant accounts.
type RestaurantRoutes struct{ prefix string }

func (r RestaurantRoutes) List() string { return join(r.prefix, "/restaurants") }
func (r RestaurantRoutes) Detail(id string) string { return join(r.prefix, "/restaurants", id) }
func (r RestaurantRoutes) Profile() string { return join(r.prefix, "/restaurants/profile") }
func (r RestaurantRoutes) Update() string { return r.Profile() }

// OrderRoutes covers order lifecycle.
type OrderRoutes struct{ prefix string }

func (r OrderRoutes) List() string { return join(r.prefix, "/orders") }
func (r OrderRoutes) Detail(id string) string { return join(r.prefix, "/orders", id) }
func (r OrderRoutes) Create() string { return r.List() }
func (r OrderRoutes) Update(id string) string { return r.Detail(id) }
func (r OrderRoutes) Cancel(id string) string { return r.Detail(id) + "/cancel" }

// CartRoutes covers the current user's cart.
type CartRoutes struct{ prefix string }

func (r CartRoutes) Get() string { return join(r.prefix, "/cart") }
func (r CartRoutes) AddItem() string { return join(r.prefix, "/cart/items") }
func (r CartRoutes) UpdateItem(id string) string { return join(r.prefix, "/cart/items", id) }
func (r CartRoutes) RemoveItem(id string) string { return r.UpdateItem(id) }
func (r CartRoutes) Clear() string { return join(r.prefix, "/cart/clear") }

// MessageRoutes covers buyer/supplier messaging.
type MessageRoutes struct{ prefix string }

func (r MessageRoutes) List() string { return join(r.prefix, "/messages") }
func (r MessageRoutes) Send() string { return r.List() }
func (r MessageRoutes) MarkRead(id string) string { return join(r.prefix, "/messages", id) + "/read" }

// Route describes one catalogue entry for listing purposes.
type Route struct {
	Name    string `json:"name"`
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Table lists every route with ":id" placeholders, in catalogue order.
func (c Catalog) Table() []Route {
	const id = ":id"
	// ":" is a valid path character, so placeholders survive escaping.
	return []Route{
		{"auth.login", "POST", c.Auth.Login()},
		{"auth.register", "POST", c.Auth.Register()},
		{"auth.refresh", "POST", c.Auth.Refresh()},
		{"auth.logout", "POST", c.Auth.Logout()},
		{"auth.profile", "GET", c.Auth.Profile()},
		{"products.list", "GET", c.Products.List()},
		{"products.detail", "GET", c.Products.Detail(id)},
		{"products.create", "POST", c.Products.Create()},
		{"products.update", "PUT", c.Products.Update(id)},
		{"products.delete", "DELETE", c.Products.Delete(id)},
		{"products.search", "GET", c.Products.Search()},
		{"products.categories", "GET", c.Products.Categories()},
		{"suppliers.list", "GET", c.Suppliers.List()},
		{"suppliers.detail", "GET", c.Suppliers.Detail(id)},
		{"suppliers.products", "GET", c.Suppliers.Products(id)},
		{"suppliers.reviews", "GET", c.Suppliers.Reviews(id)},
		{"suppliers.contact", "POST", c.Suppliers.Contact(id)},
		{"restaurants.list", "GET", c.Restaurants.List()},
		{"restaurants.detail", "GET", c.Restaurants.Detail(id)},
		{"restaurants.profile", "GET", c.Restaurants.Profile()},
		{"restaurants.update", "PUT", c.Restaurants.Update()},
		{"orders.list", "GET", c.Orders.List()},
		{"orders.detail", "GET", c.Orders.Detail(id)},
		{"orders.create", "POST", c.Orders.Create()},
		{"orders.update", "PUT", c.Orders.Update(id)},
		{"orders.cancel", "POST", c.Orders.Cancel(id)},
		{"cart.get", "GET", c.Cart.Get()},
		{"cart.add_item", "POST", c.Cart.AddItem()},
		{"cart.update_item", "PUT", c.Cart.UpdateItem(id)},
		{"cart.remove_item", "DELETE", c.Cart.RemoveItem(id)},
		{"cart.clear", "DELETE", c.Cart.Clear()},
		{"messages.list", "GET", c.Messages.List()},
		{"messages.send", "POST", c.Messages.Send()},
		{"messages.mark_read", "PUT", c.Messages.MarkRead(id)},
	}
}
