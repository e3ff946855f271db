// Package middleware decorates ports.LogStore implementations.
//
// The encryption middleware seals the mutation payload of every record with
// AES-256-GCM and supports key rotation through fallback keys:
//
//	store := middleware.Chain(redis.New(addr, "", 0),
//		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
//	)
package middleware
