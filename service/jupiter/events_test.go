package jupiter

import (
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	solMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	usdtMint = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")

	whirlpoolProgram = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	raydiumProgram   = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
)

// selfCPIPrefix is the anchor self-CPI instruction discriminator that
// prefixes every logged event.
var selfCPIPrefix = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodeSwapEventData(amm, inputMint solana.PublicKey, inputAmount uint64, outputMint solana.PublicKey, outputAmount uint64) string {
	data := make([]byte, 0, 16+32+32+8+32+8)
	data = append(data, selfCPIPrefix...)
	data = append(data, swapEventDiscriminator...)
	data = append(data, amm[:]...)
	data = append(data, inputMint[:]...)
	data = binary.LittleEndian.AppendUint64(data, inputAmount)
	data = append(data, outputMint[:]...)
	data = binary.LittleEndian.AppendUint64(data, outputAmount)
	return base58.Encode(data)
}

func encodeFeeEventData(account, mint solana.PublicKey, amount uint64) string {
	data := make([]byte, 0, 16+32+32+8)
	data = append(data, selfCPIPrefix...)
	data = append(data, feeEventDiscriminator...)
	data = append(data, account[:]...)
	data = append(data, mint[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	return base58.Encode(data)
}

func selfCPIInstruction(data string) solanasvc.Instruction {
	return solanasvc.Instruction{ProgramID: ProgramID, Data: data}
}

func TestDecodeEvents_MultiHopRoute(t *testing.T) {
	// A three-hop route: SOL -> USDC -> USDT -> SOL.
	tx := &solanasvc.RawTransaction{
		Signature: "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7",
		Inner: []solanasvc.InnerInstructionGroup{
			{
				Index: 2,
				Instructions: []solanasvc.Instruction{
					// A CPI into the venue itself, not a log.
					{ProgramID: whirlpoolProgram, Data: "3Bxs4h24hBtQy9rw"},
					selfCPIInstruction(encodeSwapEventData(whirlpoolProgram, solMint, 21112899, usdcMint, 4082119)),
					selfCPIInstruction(encodeSwapEventData(raydiumProgram, usdcMint, 4082119, usdtMint, 4083318)),
					selfCPIInstruction(encodeSwapEventData(whirlpoolProgram, usdtMint, 4083318, solMint, 21135942)),
					selfCPIInstruction(encodeFeeEventData(whirlpoolProgram, solMint, 52839)),
				},
			},
		},
	}

	decoder := NewEventDecoder(ProgramID, testLogger())
	swaps, fees := decoder.DecodeEvents(tx)

	require.Len(t, swaps, 3)
	require.Len(t, fees, 1)

	// Scan order is preserved.
	assert.Equal(t, solMint, swaps[0].InputMint)
	assert.Equal(t, usdcMint, swaps[0].OutputMint)
	assert.Equal(t, uint64(21112899), swaps[0].InputAmount)
	assert.Equal(t, uint64(4082119), swaps[0].OutputAmount)
	assert.Equal(t, whirlpoolProgram, swaps[0].Amm)

	assert.Equal(t, raydiumProgram, swaps[1].Amm)
	assert.Equal(t, usdcMint, swaps[1].InputMint)
	assert.Equal(t, usdtMint, swaps[1].OutputMint)

	assert.Equal(t, solMint, swaps[2].OutputMint)
	assert.Equal(t, uint64(21135942), swaps[2].OutputAmount)

	assert.Equal(t, solMint, fees[0].Mint)
	assert.Equal(t, uint64(52839), fees[0].Amount)
}

func TestDecodeEvents_NoSelfCPIInstructions(t *testing.T) {
	tx := &solanasvc.RawTransaction{
		Signature: "2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG",
		Inner: []solanasvc.InnerInstructionGroup{
			{
				Index: 0,
				Instructions: []solanasvc.Instruction{
					{ProgramID: whirlpoolProgram, Data: "3Bxs4h24hBtQy9rw"},
				},
			},
		},
	}

	decoder := NewEventDecoder(ProgramID, testLogger())
	swaps, fees := decoder.DecodeEvents(tx)

	assert.Empty(t, swaps)
	assert.Empty(t, fees)
}

func TestDecodeEvents_SkipsUndecodablePayloads(t *testing.T) {
	// A truncated swap event payload and an unknown discriminator, plus
	// one valid event. Only the valid one decodes.
	truncated := make([]byte, 0, 24)
	truncated = append(truncated, selfCPIPrefix...)
	truncated = append(truncated, swapEventDiscriminator...)
	truncated = append(truncated, 0x01, 0x02)

	unknown := make([]byte, 0, 24)
	unknown = append(unknown, selfCPIPrefix...)
	unknown = append(unknown, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x11, 0x22, 0x33)
	unknown = append(unknown, make([]byte, 40)...)

	tx := &solanasvc.RawTransaction{
		Signature: "3LzUfBWvh7uN5sNTVPkbDGq5SNrPBKDYTJqFmH8nHq6Z9VGJ7iCxB2rLFZsKrQNuJfTnKQ5D5YqGrNqvnKQZXMQE",
		Inner: []solanasvc.InnerInstructionGroup{
			{
				Index: 1,
				Instructions: []solanasvc.Instruction{
					selfCPIInstruction(base58.Encode(truncated)),
					selfCPIInstruction(base58.Encode(unknown)),
					selfCPIInstruction(encodeSwapEventData(raydiumProgram, solMint, 1000, usdcMint, 2000)),
					{ProgramID: ProgramID, Data: "not-base58-0OIl"},
				},
			},
		},
	}

	decoder := NewEventDecoder(ProgramID, testLogger())
	swaps, fees := decoder.DecodeEvents(tx)

	require.Len(t, swaps, 1)
	assert.Empty(t, fees)
	assert.Equal(t, uint64(1000), swaps[0].InputAmount)
	assert.Equal(t, uint64(2000), swaps[0].OutputAmount)
}
