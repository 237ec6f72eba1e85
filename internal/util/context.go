package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	ipContextKey       contextKey = "client_ip"
	usernameContextKey contextKey = "username"

	// GinUsernameKey is the gin context key carrying the signed-in username.
	GinUsernameKey = "username"
)

// SetIPContext returns a copy of ctx carrying the client IP. An empty ip
// leaves ctx untouched.
func SetIPContext(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, ipContextKey, ip)
}

// SetUsernameContext returns a copy of ctx carrying the acting username.
func SetUsernameContext(ctx context.Context, username string) context.Context {
	if username == "" {
		return ctx
	}
	return context.WithValue(ctx, usernameContextKey, username)
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}
	if ip, ok := ctx.Value(ipContextKey).(string); ok {
		return ip
	}
	return ""
}

// GetUsernameFromContext extracts the acting username from the context
func GetUsernameFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.GetString(GinUsernameKey)
	}
	if name, ok := ctx.Value(usernameContextKey).(string); ok {
		return name
	}
	return ""
}
