package rpc

// RPCError represents a JSON-RPC error response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// SendOptions controls how the node handles a submitted transaction.
type SendOptions struct {
	SkipPreflight bool
	MaxRetries    int
}

// Confirmation is the outcome of waiting for a transaction to reach a
// commitment level. Err is non-nil when the transaction executed but failed
// on chain.
type Confirmation struct {
	Err    interface{}
	Slot   uint64
	Status string
}
