package routes

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"musa/admin"
	"musa/cart"
	"musa/catalog"
	"musa/gallery"
	"musa/idempotency"
	"musa/inquiries"
	"musa/invoices"
	"musa/livesync"
	"musa/middleware"
	"musa/orders"
	"musa/ratelim"
	"musa/session"
)

// Deps is everything the handlers need, built once in main.
type Deps struct {
	Auth        *middleware.Authenticator
	Sessions    *session.Manager
	Cart        *cart.Handler
	Orders      *orders.Handler
	Invoices    *invoices.Handler
	Catalog     *catalog.Handler
	Inquiries   *inquiries.Handler
	Admin       *admin.Handler
	Gallery     *gallery.Handler
	Hub         *livesync.Hub
	RateLimiter *ratelim.RateLimiter
	Idempotency idempotency.Store
}

// Chains shared by the route groups below.
func (d *Deps) public(h httprouter.Handle) httprouter.Handle {
	return d.Auth.OptionalAuth(d.Sessions.Load(h))
}

func (d *Deps) withSession(h httprouter.Handle) httprouter.Handle {
	return d.Auth.Authenticate(d.Sessions.Load(h))
}

func (d *Deps) user(h httprouter.Handle) httprouter.Handle {
	return d.withSession(session.RequireUser(h))
}

func (d *Deps) admin(h httprouter.Handle) httprouter.Handle {
	return d.withSession(session.RequireAdmin(h))
}

// once makes a mutating route safe to retry with an Idempotency-Key.
func (d *Deps) once(h httprouter.Handle) httprouter.Handle {
	if d.Idempotency == nil {
		return h
	}
	return idempotency.Guard(d.Idempotency)(h)
}

func (d *Deps) limited(h httprouter.Handle) httprouter.Handle {
	return d.RateLimiter.Limit(h)
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddStaticRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/health", Index)
	router.ServeFiles("/static/gallery/*filepath", http.Dir(d.Gallery.Dir))
}

func AddSessionRoutes(router *httprouter.Router, d *Deps) {
	m := d.Sessions
	router.POST("/api/session", d.limited(m.CreateSession))
	router.GET("/api/session", d.withSession(m.GetSession))
	router.POST("/api/session/login", d.limited(d.public(m.LoginHandler)))
	router.POST("/api/session/register", d.limited(d.public(m.RegisterHandler)))
	router.POST("/api/session/logout", d.withSession(m.LogoutHandler))
	router.GET("/api/profile", d.user(m.GetProfile))
	router.PUT("/api/profile", d.user(m.UpdateProfile))

	router.POST("/api/admin/login", d.limited(d.public(m.AdminLoginHandler)))
	router.POST("/api/admin/logout", d.withSession(m.AdminLogoutHandler))
}

func AddCatalogRoutes(router *httprouter.Router, d *Deps) {
	h := d.Catalog
	router.GET("/api/products", d.public(catalog.GetProducts(h)))
	router.GET("/api/products/:id", d.public(catalog.GetProduct(h)))

	router.GET("/api/admin/products", d.admin(catalog.GetAdminProducts(h)))
	router.POST("/api/admin/products", d.admin(catalog.CreateProduct(h)))
	router.PUT("/api/admin/products/:id", d.admin(catalog.UpdateProduct(h)))
	router.GET("/api/admin/prices", d.admin(catalog.GetAllPrices(h)))
	router.POST("/api/admin/prices", d.admin(catalog.AddPrice(h)))
}

func AddCartRoutes(router *httprouter.Router, d *Deps) {
	h := d.Cart
	router.GET("/api/cart", d.withSession(cart.GetCart(h)))
	router.POST("/api/cart/items", d.withSession(cart.AddToCart(h)))
	router.PUT("/api/cart/items/:id", d.withSession(cart.UpdateCartItem(h)))
	router.POST("/api/cart/items/:id/increment", d.withSession(cart.IncrementItem(h)))
	router.POST("/api/cart/items/:id/decrement", d.withSession(cart.DecrementItem(h)))
	router.DELETE("/api/cart/items/:id", d.withSession(cart.RemoveItem(h)))
	router.DELETE("/api/cart", d.withSession(cart.ClearCart(h)))
	router.POST("/api/cart/checkout", d.user(d.once(cart.PlaceOrder(h))))
}

func AddOrderRoutes(router *httprouter.Router, d *Deps) {
	h := d.Orders
	router.GET("/api/orders", d.user(orders.GetMyOrders(h)))
	router.GET("/api/orders/:id", d.user(orders.GetMyOrder(h)))
	router.GET("/api/orders/:id/invoice.pdf", d.user(invoices.DownloadInvoice(d.Invoices)))

	router.GET("/api/admin/orders", d.admin(orders.GetAllOrders(h)))
	router.GET("/api/admin/orders/:id", d.admin(orders.GetOrderAdmin(h)))
	router.PUT("/api/admin/orders/:id/status", d.admin(orders.UpdateOrderStatus(h)))
	router.GET("/api/admin/orders/:id/invoice.pdf", d.admin(invoices.DownloadInvoiceAdmin(d.Invoices)))
}

func AddInvoiceRoutes(router *httprouter.Router, d *Deps) {
	h := d.Invoices
	router.POST("/api/admin/orders/:id/invoice-draft", d.admin(invoices.CreateDraft(h)))
	router.GET("/api/admin/invoice-drafts/:orderid", d.admin(invoices.GetDraft(h)))
	router.PUT("/api/admin/invoice-drafts/:orderid", d.admin(invoices.UpdateDraft(h)))
	router.PUT("/api/admin/invoice-drafts/:orderid/lines/:index", d.admin(invoices.UpdateDraftLine(h)))
	router.DELETE("/api/admin/invoice-drafts/:orderid", d.admin(invoices.DiscardDraft(h)))
	router.POST("/api/admin/invoice-drafts/:orderid/submit", d.admin(d.once(invoices.SubmitDraft(h))))

	router.GET("/api/invoices/verify", invoices.VerifyInvoice(h))
}

func AddInquiryRoutes(router *httprouter.Router, d *Deps) {
	h := d.Inquiries
	router.POST("/api/inquiries", d.user(inquiries.SubmitInquiry(h)))
	router.GET("/api/inquiries", d.user(inquiries.GetMyInquiries(h)))
	router.POST("/api/inquiries/public", d.limited(d.public(inquiries.SubmitPublicInquiry(h))))

	router.GET("/api/admin/inquiries", d.admin(inquiries.GetAllInquiries(h)))
	router.PUT("/api/admin/inquiries/:id/status", d.admin(inquiries.UpdateInquiryStatus(h)))
}

func AddAdminRoutes(router *httprouter.Router, d *Deps) {
	h := d.Admin
	router.GET("/api/admin/dashboard", d.admin(admin.GetDashboard(h)))
	router.GET("/api/admin/users", d.admin(admin.GetUsers(h)))
	router.PUT("/api/admin/users/:id/status", d.admin(admin.UpdateUserStatus(h)))
	router.GET("/api/admin/users/:id/orders", d.admin(admin.GetUserOrders(h)))
}

func AddGalleryRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/gallery", d.public(gallery.GetGallery(d.Gallery)))
	router.POST("/api/admin/gallery", d.admin(gallery.UploadGallery(d.Gallery)))
}

func AddLiveSyncRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/ws", livesync.WebSocketHandler(d.Hub, d.Auth))
}

// RoutesWrapper registers every route group.
func RoutesWrapper(router *httprouter.Router, d *Deps) {
	AddStaticRoutes(router, d)
	AddSessionRoutes(router, d)
	AddCatalogRoutes(router, d)
	AddCartRoutes(router, d)
	AddOrderRoutes(router, d)
	AddInvoiceRoutes(router, d)
	AddInquiryRoutes(router, d)
	AddAdminRoutes(router, d)
	AddGalleryRoutes(router, d)
	AddLiveSyncRoutes(router, d)
}
