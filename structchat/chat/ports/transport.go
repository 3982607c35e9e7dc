package chatports

import "context"

// HTTPResponse is the minimal result of one request/response exchange.
type HTTPResponse struct {
	Code int
	Body string
}

// StatusOK is the only status the engine treats as success.
const StatusOK = 200

// Transport performs one blocking exchange with a model backend. The engine
// never sees the wire format, only the status code and body text.
type Transport interface {
	Send(ctx context.Context, turns []Turn) (HTTPResponse, error)
}
