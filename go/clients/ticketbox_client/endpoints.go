package ticketbox_client

const (
	// API Endpoints
	EventsEndpoint               = "/api/events"
	CartsEndpoint                = "/api/carts"
	CartsAddMultipleEndpoint     = "/api/carts/add-multiple"
	CartsCheckoutEndpoint        = "/api/carts/checkout"
	CartsPrepareCheckoutEndpoint = "/api/carts/prepare-checkout"
	CartsPlaceOrderEndpoint      = "/api/carts/place-order"
	AuthLoginEndpoint            = "/api/auth/login"
	AuthLogoutEndpoint           = "/api/auth/logout"
	OrdersPendingCountEndpoint   = "/api/orders/pending-tickets-count"
	OrdersHistoryEndpoint        = "/api/orders/history"
	OrdersEndpoint               = "/api/orders"
)
