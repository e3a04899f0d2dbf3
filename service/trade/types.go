package trade

import (
	solanasvc "github.com/brojonat/hopscotch/service/solana"
)

// ParsedSwap is one executed exchange hop of an aggregator route.
// Amounts stay as decimal strings of the raw integer units; scaling to
// human units happens at formatting time, once decimals are known.
type ParsedSwap struct {
	Amm          string `json:"amm"`
	InputMint    string `json:"input_mint"`
	InputAmount  string `json:"input_amount"`
	OutputMint   string `json:"output_mint"`
	OutputAmount string `json:"output_amount"`
}

// ParsedFee is one platform fee charged during the route.
type ParsedFee struct {
	Account string `json:"account"`
	Mint    string `json:"mint"`
	Amount  string `json:"amount"`
}

// ParsedTransaction is the assembled view of one aggregator transaction.
// Immutable after the interpreter returns it. If Swaps is non-empty,
// ActualOutAmount equals the last swap's OutputAmount.
type ParsedTransaction struct {
	Swaps           []ParsedSwap `json:"swaps"`
	FeeEvents       []ParsedFee  `json:"fee_events"`
	SlippageBps     *string      `json:"slippage_bps,omitempty"`
	QuotedOutAmount *string      `json:"quoted_out_amount,omitempty"`
	ActualOutAmount string       `json:"actual_out_amount"`
	Timestamp       *int64       `json:"timestamp,omitempty"`
}

// TradeInfo is a ParsedTransaction tied to its transaction signature.
type TradeInfo struct {
	Signature string `json:"signature"`
	ParsedTransaction
}

// Interpreter recognizes and decodes one aggregator's transactions.
// Returns nil when the transaction carries no trade for this aggregator.
// Interpreters are tried in order; the first non-nil interpretation wins.
type Interpreter interface {
	Name() string
	Interpret(tx *solanasvc.RawTransaction) *ParsedTransaction
}

// FormattedAmount carries a raw integer amount and its display form.
type FormattedAmount struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

// FormattedToken is a resolved token annotated with an amount.
type FormattedToken struct {
	Address     string          `json:"address"`
	Name        string          `json:"name,omitempty"`
	Symbol      string          `json:"symbol,omitempty"`
	Decimals    uint8           `json:"decimals"`
	Image       string          `json:"image,omitempty"`
	MetadataURI string          `json:"metadata_uri,omitempty"`
	Amount      FormattedAmount `json:"amount"`
}

// FormattedRoute is one display-ready hop of a trade's route.
type FormattedRoute struct {
	Amm         string         `json:"amm"`
	AmmName     string         `json:"amm_name"`
	InputToken  FormattedToken `json:"input_token"`
	OutputToken FormattedToken `json:"output_token"`
}

// FormattedTrade is the human-readable rendering of one trade.
// InputToken corresponds to the first swap's input mint and OutputToken
// to the last swap's output mint.
type FormattedTrade struct {
	Signature   string           `json:"signature"`
	Timestamp   int64            `json:"timestamp"`
	InputToken  FormattedToken   `json:"input_token"`
	OutputToken FormattedToken   `json:"output_token"`
	Route       []FormattedRoute `json:"route"`
	Slippage    string           `json:"slippage"`
	PriceImpact string           `json:"price_impact"`
}
