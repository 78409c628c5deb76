// Package ws implements the WebSocket hub for the dashboard backend.
//
// Hub manages a set of connected clients and broadcasts the merged analysis
// over every catalog source on a configurable interval (default 5s in
// production).
//
// New(catalog, provider, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker — blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// analysis immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "analysis",
//	  "data":  { /* same schema as GET /api/analysis */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. WebSocket endpoint is mounted at /ws/stream by the server.
package ws
