package jupiter

import (
	"encoding/binary"
	"testing"

	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/brojonat/hopscotch/service/token"
	"github.com/brojonat/hopscotch/service/trade"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routeTx(blockTime *int64, slot uint64) *solanasvc.RawTransaction {
	routeDisc := []byte{0xE5, 0x17, 0xCB, 0x97, 0x7A, 0xE3, 0xAD, 0x2A}
	routeData := make([]byte, 0, 32)
	routeData = append(routeData, routeDisc...)
	routeData = binary.LittleEndian.AppendUint32(routeData, 0)
	routeData = binary.LittleEndian.AppendUint64(routeData, 21112899) // in_amount
	routeData = binary.LittleEndian.AppendUint64(routeData, 4100000)  // quoted_out_amount
	routeData = binary.LittleEndian.AppendUint16(routeData, 2000)     // slippage_bps
	routeData = append(routeData, 0)

	return &solanasvc.RawTransaction{
		Signature: "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7",
		Slot:      slot,
		BlockTime: blockTime,
		Instructions: []solanasvc.Instruction{
			{ProgramID: ProgramID, Data: base58.Encode(routeData)},
		},
		Inner: []solanasvc.InnerInstructionGroup{
			{
				Index: 0,
				Instructions: []solanasvc.Instruction{
					selfCPIInstruction(encodeSwapEventData(whirlpoolProgram, solMint, 21112899, usdcMint, 4082119)),
					selfCPIInstruction(encodeSwapEventData(raydiumProgram, usdcMint, 4082119, usdtMint, 4083318)),
				},
			},
		},
	}
}

func TestInterpret_FullTrade(t *testing.T) {
	blockTime := int64(1700000000)
	tx := routeTx(&blockTime, 250000000)

	parser := NewParser(ProgramID, testLogger())
	parsed := parser.Interpret(tx)

	require.NotNil(t, parsed)
	require.Len(t, parsed.Swaps, 2)

	assert.Equal(t, "21112899", parsed.Swaps[0].InputAmount)
	assert.Equal(t, solMint.String(), parsed.Swaps[0].InputMint)
	assert.Equal(t, usdtMint.String(), parsed.Swaps[1].OutputMint)
	assert.Equal(t, "4083318", parsed.ActualOutAmount)

	require.NotNil(t, parsed.SlippageBps)
	assert.Equal(t, "2000", *parsed.SlippageBps)
	require.NotNil(t, parsed.QuotedOutAmount)
	assert.Equal(t, "4100000", *parsed.QuotedOutAmount)

	require.NotNil(t, parsed.Timestamp)
	assert.Equal(t, blockTime, *parsed.Timestamp)
}

func TestInterpret_EstimatesTimestampFromSlot(t *testing.T) {
	tx := routeTx(nil, 100)

	parser := NewParser(ProgramID, testLogger())
	parsed := parser.Interpret(tx)

	require.NotNil(t, parsed)
	require.NotNil(t, parsed.Timestamp)
	// genesis + 100 slots at 400ms each.
	assert.Equal(t, int64(1598931640), *parsed.Timestamp)
}

func TestInterpret_FourHopRouteEndsOnInputToken(t *testing.T) {
	// SOL -> USDC -> USDT -> BONK -> SOL across three venues, with the
	// first and third hops on the same venue. The parsed swaps must keep
	// the execution order and the assembled trade must read as SOL on
	// both ends.
	bonkMint := solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	meteoraProgram := solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")

	routeDisc := []byte{0xE5, 0x17, 0xCB, 0x97, 0x7A, 0xE3, 0xAD, 0x2A}
	blockTime := int64(1700000000)
	tx := &solanasvc.RawTransaction{
		Signature: "3LzUfBWvh7uN5sNTVPkbDGq5SNrPBKDYTJqFmH8nHq6Z9VGJ7iCxB2rLFZsKrQNuJfTnKQ5D5YqGrNqvnKQZXMQE",
		Slot:      250000001,
		BlockTime: &blockTime,
		Instructions: []solanasvc.Instruction{
			{ProgramID: ProgramID, Data: encodeRouteData(routeDisc, [2]uint64{21112899, 21135942}, 50, 0)},
		},
		Inner: []solanasvc.InnerInstructionGroup{
			{
				Index: 0,
				Instructions: []solanasvc.Instruction{
					selfCPIInstruction(encodeSwapEventData(whirlpoolProgram, solMint, 21112899, usdcMint, 4082119)),
					selfCPIInstruction(encodeSwapEventData(raydiumProgram, usdcMint, 4082119, usdtMint, 4083318)),
					selfCPIInstruction(encodeSwapEventData(whirlpoolProgram, usdtMint, 4083318, bonkMint, 24342982929)),
					selfCPIInstruction(encodeSwapEventData(meteoraProgram, bonkMint, 24342982929, solMint, 21135942)),
				},
			},
		},
	}

	parser := NewParser(ProgramID, testLogger())
	parsed := parser.Interpret(tx)

	require.NotNil(t, parsed)
	require.Len(t, parsed.Swaps, 4)

	wantSwaps := []trade.ParsedSwap{
		{Amm: whirlpoolProgram.String(), InputMint: solMint.String(), InputAmount: "21112899", OutputMint: usdcMint.String(), OutputAmount: "4082119"},
		{Amm: raydiumProgram.String(), InputMint: usdcMint.String(), InputAmount: "4082119", OutputMint: usdtMint.String(), OutputAmount: "4083318"},
		{Amm: whirlpoolProgram.String(), InputMint: usdtMint.String(), InputAmount: "4083318", OutputMint: bonkMint.String(), OutputAmount: "24342982929"},
		{Amm: meteoraProgram.String(), InputMint: bonkMint.String(), InputAmount: "24342982929", OutputMint: solMint.String(), OutputAmount: "21135942"},
	}
	assert.Equal(t, wantSwaps, parsed.Swaps)
	assert.Equal(t, "21135942", parsed.ActualOutAmount)

	tokens := map[string]token.TokenInfo{
		solMint.String():  {Address: solMint.String(), Name: "Wrapped SOL", Symbol: "SOL", Decimals: 9},
		usdcMint.String(): {Address: usdcMint.String(), Name: "USD Coin", Symbol: "USDC", Decimals: 6},
		usdtMint.String(): {Address: usdtMint.String(), Name: "USDT", Symbol: "USDT", Decimals: 6},
		bonkMint.String(): {Address: bonkMint.String(), Name: "Bonk", Symbol: "Bonk", Decimals: 5},
	}

	formatter := trade.NewFormatter(testLogger())
	formatted, err := formatter.Format(parsed, tx.Signature, tokens)
	require.NoError(t, err)

	assert.Equal(t, solMint.String(), formatted.InputToken.Address)
	assert.Equal(t, solMint.String(), formatted.OutputToken.Address)
	assert.Equal(t, "21112899", formatted.InputToken.Amount.Raw)
	assert.Equal(t, "21135942", formatted.OutputToken.Amount.Raw)

	require.Len(t, formatted.Route, 4)
	assert.Equal(t, "Whirlpool", formatted.Route[0].AmmName)
	assert.Equal(t, "Raydium", formatted.Route[1].AmmName)
	assert.Equal(t, "Whirlpool", formatted.Route[2].AmmName)
	assert.Equal(t, "Meteora DLMM", formatted.Route[3].AmmName)
	assert.Equal(t, "24342982929", formatted.Route[2].OutputToken.Amount.Raw)
}

func TestInterpret_NoProgramInstructions(t *testing.T) {
	tx := &solanasvc.RawTransaction{
		Signature: "2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG",
		Instructions: []solanasvc.Instruction{
			{ProgramID: whirlpoolProgram, Data: "3Bxs4h24hBtQy9rw"},
		},
	}

	parser := NewParser(ProgramID, testLogger())
	assert.Nil(t, parser.Interpret(tx))
}

func TestInterpret_InstructionsButNoSwapEvents(t *testing.T) {
	tx := routeTx(nil, 1)
	tx.Inner = nil

	parser := NewParser(ProgramID, testLogger())
	assert.Nil(t, parser.Interpret(tx))
}
