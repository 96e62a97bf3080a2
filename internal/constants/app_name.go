package constants

const (
	APP_PRICING_SERVICE = "pricing-service"
	APP_CART_SERVICE    = "cart-service"
	APP_MIGRATION       = "migration"
	APP_MAIN            = "main pricing"
	AUDIENCE_USER       = "audience-user"
	ISSUER_USER_SERVICE = "user-service"
)
