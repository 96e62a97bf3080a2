package http

const (
	KEY_HEADER_CONTENT_TYPE       = "Content-Type"
	KEY_HEADER_REQUEST_ID         = "X-Request-Id"
	KEY_HEADER_CART_ID            = "X-Cart-Id"
	KEY_HEADER_AUTHORIZATION      = "Authorization"
	VALUE_HEADER_APPLICATION_JSON = "application/json"
)
