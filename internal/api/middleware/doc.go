// Package middleware provides the HTTP middleware for the flashfile API.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID tagging with google/uuid
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - GlobalRateLimit: One token bucket shared by all clients
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.GlobalRateLimit(middleware.DefaultRateLimitConfig()))
package middleware
