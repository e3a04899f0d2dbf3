package trade

import (
	"github.com/gagliardetto/solana-go"
)

// AMM identifies an exchange venue a route hop executed on. The set is
// closed: programs we do not recognize map to AMMUnknown rather than
// failing the hop.
type AMM int

const (
	AMMUnknown AMM = iota
	AMMOrca
	AMMGooseFX
	AMMPenguin
	AMMJupiterV6
	AMMMeteoraDLMM
	AMMRaydium
	AMMWhirlpool
	AMMRaydiumCLMM
	AMMPhoenix
	AMMRaydiumCPMM
	AMMSolFi
)

var ammNames = []string{
	"Unknown",
	"Orca",
	"GooseFX",
	"Penguin",
	"Jupiter Aggregator V6",
	"Meteora DLMM",
	"Raydium",
	"Whirlpool",
	"Raydium CLMM",
	"Phoenix",
	"Raydium CPMM",
	"SolFi",
}

// Name returns the display name of the venue.
func (a AMM) Name() string {
	if a >= 0 && int(a) < len(ammNames) {
		return ammNames[a]
	}
	return ammNames[AMMUnknown]
}

var ammPrograms = map[solana.PublicKey]AMM{
	solana.MustPublicKeyFromBase58("obriQD1zbpyLz95G5n7nJe6a4DPjpFwa5XYPoNm113y"):  AMMOrca,
	solana.MustPublicKeyFromBase58("HyaB3W9q6XdA5xwpU4XnSZV94htfmbmqJXZcEbRaJutt"): AMMGooseFX,
	solana.MustPublicKeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"): AMMPenguin,
	solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"):  AMMJupiterV6,
	solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"):  AMMMeteoraDLMM,
	solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"): AMMRaydium,
	solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"):  AMMWhirlpool,
	solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"): AMMRaydiumCLMM,
	solana.MustPublicKeyFromBase58("PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY"):  AMMPhoenix,
	solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"): AMMRaydiumCPMM,
	solana.MustPublicKeyFromBase58("SoLFiHG9TfgtdUXUjWAxi3LtvYuFyDLVhBWxdMZxyCe"):  AMMSolFi,
}

// AMMForProgram maps a venue program ID to its AMM identity.
func AMMForProgram(program solana.PublicKey) AMM {
	if amm, ok := ammPrograms[program]; ok {
		return amm
	}
	return AMMUnknown
}

// AMMNameForAddress maps a base58 program address to a display name.
// Malformed or unrecognized addresses render as "Unknown".
func AMMNameForAddress(address string) string {
	program, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return AMMUnknown.Name()
	}
	return AMMForProgram(program).Name()
}
