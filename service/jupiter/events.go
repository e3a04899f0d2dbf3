package jupiter

import (
	"bytes"
	"log/slog"

	solanasvc "github.com/brojonat/hopscotch/service/solana"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Jupiter logs events by invoking itself with the event serialized as
// instruction data: an 8-byte self-CPI discriminator, then the event's
// own 8-byte discriminator, then the borsh-encoded payload.
const selfCPIPrefixLen = 8

// Anchor event discriminators, sha256("event:<Name>")[:8].
var (
	swapEventDiscriminator = []byte{0x40, 0xc6, 0xcd, 0xe8, 0x26, 0x08, 0x71, 0xe2}
	feeEventDiscriminator  = []byte{0x49, 0x4f, 0x4e, 0x7f, 0xb8, 0xd5, 0x0d, 0xdc}
)

// SwapEvent is one executed hop as logged by the aggregator program.
type SwapEvent struct {
	Amm          solana.PublicKey
	InputMint    solana.PublicKey
	InputAmount  uint64
	OutputMint   solana.PublicKey
	OutputAmount uint64
}

// FeeEvent is a platform fee charge logged by the aggregator program.
type FeeEvent struct {
	Account solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// EventDecoder extracts the events a program logged via inner
// instructions addressed to itself.
type EventDecoder struct {
	program solana.PublicKey
	logger  *slog.Logger
}

// NewEventDecoder creates a decoder for the given aggregator program.
func NewEventDecoder(program solana.PublicKey, logger *slog.Logger) *EventDecoder {
	return &EventDecoder{program: program, logger: logger}
}

// DecodeEvents scans every inner-instruction group for self-addressed log
// instructions and decodes them against the known event schemas. Unknown
// or undecodable payloads are skipped: a transaction routinely carries
// log events we have no schema for. Both result slices preserve the scan
// order. A transaction with no matching inner instructions yields empty
// slices, not an error.
func (d *EventDecoder) DecodeEvents(tx *solanasvc.RawTransaction) ([]SwapEvent, []FeeEvent) {
	var swaps []SwapEvent
	var fees []FeeEvent

	for _, group := range tx.Inner {
		for _, ix := range group.Instructions {
			if !ix.ProgramID.Equals(d.program) {
				continue
			}
			// Structurally parsed instructions carry no raw data to decode.
			if ix.Parsed || ix.Data == "" {
				continue
			}

			raw, err := base58.Decode(ix.Data)
			if err != nil {
				d.logger.Debug("undecodable instruction data", "signature", tx.Signature, "error", err)
				continue
			}
			if len(raw) < selfCPIPrefixLen+8 {
				continue
			}
			payload := raw[selfCPIPrefixLen:]

			switch {
			case bytes.Equal(payload[:8], swapEventDiscriminator):
				var event SwapEvent
				if err := bin.NewBorshDecoder(payload[8:]).Decode(&event); err != nil {
					d.logger.Debug("undecodable swap event", "signature", tx.Signature, "error", err)
					continue
				}
				swaps = append(swaps, event)
			case bytes.Equal(payload[:8], feeEventDiscriminator):
				var event FeeEvent
				if err := bin.NewBorshDecoder(payload[8:]).Decode(&event); err != nil {
					d.logger.Debug("undecodable fee event", "signature", tx.Signature, "error", err)
					continue
				}
				fees = append(fees, event)
			}
		}
	}

	return swaps, fees
}
