package jupiter

// Quote is a priced route for converting an exact input amount into an
// estimated output amount. It is valid only for the
// (inputMint, outputMint, inAmount) triple it was generated for and must be
// re-fetched whenever any of the three changes. The full response is kept
// opaque so the exact route can be posted back to the swap endpoint.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`

	ContextSlot uint64  `json:"contextSlot,omitempty"`
	TimeTaken   float64 `json:"timeTaken,omitempty"`
}

type PlatformFee struct {
	Amount string `json:"amount,omitempty"`
	FeeBps uint16 `json:"feeBps,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount,omitempty"`
	FeeMint    string `json:"feeMint,omitempty"`
}

// swapRequest is the body of the swap-transaction endpoint. The execution
// hints are fixed: native SOL is wrapped/unwrapped automatically, compute
// budget is sized dynamically, and the prioritization fee is chosen by the
// aggregator.
type swapRequest struct {
	QuoteResponse             *Quote `json:"quoteResponse"`
	UserPublicKey             string `json:"userPublicKey"`
	WrapAndUnwrapSol          bool   `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool   `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// SwapResult is the outcome of a submission attempt. It is surfaced once to
// the user and then discarded.
type SwapResult struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}
