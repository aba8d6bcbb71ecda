// Package kit provides transport plumbing shared by HTTP and MCP
// surfaces: the Endpoint abstraction and request-scoped context keys.
package kit

import "context"

// Endpoint is a transport-agnostic operation: decode happens in the
// transport layer, the endpoint sees the typed request only.
type Endpoint func(ctx context.Context, request any) (any, error)

type contextKey string

const (
	ActorKey     contextKey = "kit_actor"
	TransportKey contextKey = "kit_transport" // "http", "mcp", "cli"
	RequestIDKey contextKey = "kit_request_id"
)

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

func GetActor(ctx context.Context) string {
	v, _ := ctx.Value(ActorKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}
