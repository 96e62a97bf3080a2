package log

const (
	KeyAppName        = "app"
	KeyRequestID      = "requestId"
	KeyTraceID        = "traceId"
	KeySpanID         = "spanId"
	KeyProcess        = "process"
	KeyToken          = "token"
	KeyTag            = "tag"
	KeyRequest        = "request"
	KeyRequestBody    = "requestBody"
	KeyRequestHeader  = "requestHeader"
	KeyRequestHost    = "host"
	KeyRequestIp      = "requesterIP"
	KeyRequestMethod  = "requestMethod"
	KeyRequestURI     = "requestURI"
	KeyRequestURL     = "requestURL"
	KeyPathValues     = "pathValues"
	KeyConfig         = "config"
	KeyCacheKey       = "cacheKey"
	KeyJsonCache      = "jsonCache"
	KeyDbURL          = "dbUrl"
	KeyUserID         = "userId"
	KeyCustomerID     = "customerId"
	KeyProductID      = "productId"
	KeyProductIDs     = "productIds"
	KeyProductCount   = "productCount"
	KeySchemaCount    = "schemaCount"
	KeyRule           = "rule"
	KeyRuleValidation = "ruleValidation"
	KeyEffectivePrice = "effectivePrice"
	KeyCart           = "cart"
	KeyCartID         = "cartId"
	KeyGuestCartID    = "guestCartId"
	KeyCartItem       = "cartItem"
	KeyCartItems      = "cartItems"
	KeyCartItemsCount = "cartItemsCount"
	KeyCartVersion    = "cartVersion"
	KeyCartWriteMode  = "cartWriteMode"
	KeyAttempt        = "attempt"
	KeyMigrationPath  = "migrationPath"
)
