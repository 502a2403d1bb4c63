// Package api is the bridge's read-only operator HTTP API.
//
// It exposes forwarding status, the acquisition channels with their latest
// values, the forward log, and a WebSocket stream of the point messages
// sent to the IEC 104 gateway:
//
//	GET /api/v1/health
//	GET /api/v1/channels
//	GET /api/v1/channels/{id}
//	GET /api/v1/forward-log?source_id=&outcome=&limit=&offset=
//	GET /api/v1/ws
//
// The server follows the same lifecycle as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
