package cache

const KEY_CUSTOMER_PRICING = "pricing:customers:%s"
