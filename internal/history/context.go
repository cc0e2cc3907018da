package history

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "history_ip"
	ctxKeyUserAgent contextKey = "history_ua"
)

// ContextWithClient records the client address and user agent on ctx.
func ContextWithClient(ctx context.Context, ip, ua string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// IPAddressFromContext extracts the client address from ctx.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext extracts the client user agent from ctx.
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}
