package agentcore

import "context"

// ChainSubmitResult is the opaque outcome of submitting a Plan to the chain.
type ChainSubmitResult struct {
	Signature    string
	ObservedOut  uint64
}

// ChainClient is the opaque external collaborator that turns a Plan into an
// on-chain transaction. The core treats it as submit(plan) -> signature |
// error; it never owns transaction layout or ties itself to a named venue.
type ChainClient interface {
	Submit(ctx context.Context, plan Plan) (ChainSubmitResult, error)
}
