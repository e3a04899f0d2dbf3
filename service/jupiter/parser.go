package jupiter

import (
	"log/slog"
	"strconv"

	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/brojonat/hopscotch/service/trade"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the Jupiter V6 aggregator program.
var ProgramID = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

// Timestamp estimation for transactions whose block time the ledger did
// not report: slot 0 of the current mainnet epoch started at Sep 1 2020
// and slots average ~400ms. This is a deliberate approximation, not
// wall-clock truth.
const (
	genesisEpochSecond = 1598931600
	slotDurationMs     = 400
)

// Parser interprets Jupiter V6 transactions into trades. It composes the
// instruction decoder (quote-side data) with the event decoder
// (execution-side data).
type Parser struct {
	program      solana.PublicKey
	instructions *InstructionDecoder
	events       *EventDecoder
	logger       *slog.Logger
}

// NewParser creates a parser for the given aggregator program.
func NewParser(program solana.PublicKey, logger *slog.Logger) *Parser {
	return &Parser{
		program:      program,
		instructions: NewInstructionDecoder(program),
		events:       NewEventDecoder(program, logger),
		logger:       logger,
	}
}

// Name implements trade.Interpreter.
func (p *Parser) Name() string { return "jupiter-v6" }

// Interpret decodes one transaction into a trade, or nil when the
// transaction carries none. The whole operation is guarded: a malformed
// transaction must never abort the batch it arrived in, so any panic
// while decoding degrades to a nil result.
func (p *Parser) Interpret(tx *solanasvc.RawTransaction) (parsed *trade.ParsedTransaction) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while interpreting transaction",
				"signature", tx.Signature,
				"panic", r,
			)
			parsed = nil
		}
	}()

	programInstructions := p.instructions.ProgramInstructions(tx)
	if len(programInstructions) == 0 {
		return nil
	}

	// Quote-side data is optional: a decode failure leaves slippage and
	// quoted amount unset rather than failing the transaction.
	var slippageBps, quotedOutAmount *string
	routeArgs, err := p.instructions.RouteArgs(programInstructions)
	if err != nil {
		p.logger.Warn("failed to decode route arguments", "signature", tx.Signature, "error", err)
	} else if routeArgs != nil {
		slippage := strconv.FormatUint(uint64(routeArgs.SlippageBps), 10)
		quoted := strconv.FormatUint(routeArgs.QuotedOutAmount, 10)
		slippageBps = &slippage
		quotedOutAmount = &quoted
	}

	swapEvents, feeEvents := p.events.DecodeEvents(tx)
	if len(swapEvents) == 0 {
		return nil
	}

	timestamp := tx.BlockTime
	if timestamp == nil && tx.Slot > 0 {
		estimated := genesisEpochSecond + int64(tx.Slot)*slotDurationMs/1000
		timestamp = &estimated
		p.logger.Debug("estimated timestamp from slot", "signature", tx.Signature, "slot", tx.Slot)
	}

	swaps := make([]trade.ParsedSwap, 0, len(swapEvents))
	for _, event := range swapEvents {
		swaps = append(swaps, trade.ParsedSwap{
			Amm:          event.Amm.String(),
			InputMint:    event.InputMint.String(),
			InputAmount:  strconv.FormatUint(event.InputAmount, 10),
			OutputMint:   event.OutputMint.String(),
			OutputAmount: strconv.FormatUint(event.OutputAmount, 10),
		})
	}
	fees := make([]trade.ParsedFee, 0, len(feeEvents))
	for _, event := range feeEvents {
		fees = append(fees, trade.ParsedFee{
			Account: event.Account.String(),
			Mint:    event.Mint.String(),
			Amount:  strconv.FormatUint(event.Amount, 10),
		})
	}

	return &trade.ParsedTransaction{
		Swaps:           swaps,
		FeeEvents:       fees,
		SlippageBps:     slippageBps,
		QuotedOutAmount: quotedOutAmount,
		ActualOutAmount: swaps[len(swaps)-1].OutputAmount,
		Timestamp:       timestamp,
	}
}
