package jupiter

import (
	"encoding/binary"
	"fmt"

	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Route-family instruction discriminators (anchor, sha256("global:<name>")[:8]).
// Every variant's arguments end with `slippage_bps u16, platform_fee_bps u8`,
// preceded by two u64 amounts; the tail decodes at fixed offsets without
// parsing the route_plan enum vector that precedes it.
var routeDiscriminators = map[[8]byte]routeVariant{
	{0xE5, 0x17, 0xCB, 0x97, 0x7A, 0xE3, 0xAD, 0x2A}: {name: "route"},
	{0x96, 0x56, 0x47, 0x74, 0xA7, 0x5D, 0x0E, 0x68}: {name: "routeWithTokenLedger"},
	{0xC1, 0x20, 0x9B, 0x33, 0x41, 0xD6, 0x9C, 0x81}: {name: "sharedAccountsRoute"},
	{0xE6, 0x79, 0x8F, 0x50, 0x77, 0x9F, 0x6A, 0xAA}: {name: "sharedAccountsRouteWithTokenLedger"},
	{0xD0, 0x33, 0xEF, 0x97, 0x7B, 0x2B, 0xED, 0x5C}: {name: "exactOutRoute", exactOut: true},
	{0xB0, 0xD1, 0x69, 0xA8, 0x9A, 0x7D, 0x45, 0x3E}: {name: "sharedAccountsExactOutRoute", exactOut: true},
}

type routeVariant struct {
	name     string
	exactOut bool
}

// Argument tail layouts, measured from the end of the instruction data:
//
//	in-based:  ..., in_amount u64, quoted_out_amount u64, slippage_bps u16, platform_fee_bps u8
//	exact-out: ..., out_amount u64, quoted_in_amount u64, slippage_bps u16, platform_fee_bps u8
const (
	slippageTailOffset = 3  // slippage_bps u16 + platform_fee_bps u8
	quotedTailOffset   = 11 // quoted_out_amount u64 + the above
	exactOutTailOffset = 19 // out_amount u64 + quoted_in_amount u64 + the above
)

// RouteArgs are the caller-supplied arguments of a route-family
// instruction: the quote the trade was built against, before slippage.
type RouteArgs struct {
	SlippageBps     uint16
	QuotedOutAmount uint64
}

// InstructionDecoder extracts aggregator-addressed instructions and the
// route-family arguments from a transaction.
type InstructionDecoder struct {
	program solana.PublicKey
}

// NewInstructionDecoder creates a decoder for the given aggregator program.
func NewInstructionDecoder(program solana.PublicKey) *InstructionDecoder {
	return &InstructionDecoder{program: program}
}

// ProgramInstructions returns the instructions addressed to the
// aggregator, in execution order: each top-level instruction followed by
// its inner group.
func (d *InstructionDecoder) ProgramInstructions(tx *solanasvc.RawTransaction) []solanasvc.Instruction {
	inner := make(map[uint16][]solanasvc.Instruction, len(tx.Inner))
	for _, group := range tx.Inner {
		inner[group.Index] = group.Instructions
	}

	var out []solanasvc.Instruction
	for i, ix := range tx.Instructions {
		if ix.ProgramID.Equals(d.program) {
			out = append(out, ix)
		}
		for _, innerIx := range inner[uint16(i)] {
			if innerIx.ProgramID.Equals(d.program) {
				out = append(out, innerIx)
			}
		}
	}
	return out
}

// RouteArgs locates the route-family instruction among the given
// instructions and decodes its slippage and quoted amount arguments.
// Returns (nil, nil) when no route instruction is present: a transaction
// can still carry valid swap events when another program composed the
// route, so callers must treat this as a soft miss.
func (d *InstructionDecoder) RouteArgs(instructions []solanasvc.Instruction) (*RouteArgs, error) {
	for _, ix := range instructions {
		if ix.Parsed || ix.Data == "" {
			continue
		}
		data, err := base58.Decode(ix.Data)
		if err != nil || len(data) < 8 {
			continue
		}

		var disc [8]byte
		copy(disc[:], data[:8])
		variant, ok := routeDiscriminators[disc]
		if !ok {
			continue
		}

		quotedOffset := quotedTailOffset
		if variant.exactOut {
			quotedOffset = exactOutTailOffset
		}
		if len(data) < 8+quotedOffset {
			return nil, fmt.Errorf("%s instruction data too short: %d bytes", variant.name, len(data))
		}

		n := len(data)
		return &RouteArgs{
			SlippageBps:     binary.LittleEndian.Uint16(data[n-slippageTailOffset : n-slippageTailOffset+2]),
			QuotedOutAmount: binary.LittleEndian.Uint64(data[n-quotedOffset : n-quotedOffset+8]),
		}, nil
	}
	return nil, nil
}
