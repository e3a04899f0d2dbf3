package solana

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Instruction is one instruction of a transaction, top-level or inner.
// Data is kept in its base58 wire form: decoders that care about raw bytes
// (the Jupiter event decoder) do the decode themselves, and instructions
// the RPC node already decoded structurally carry no raw data at all.
type Instruction struct {
	ProgramID solana.PublicKey   `json:"program_id"`
	Accounts  []solana.PublicKey `json:"accounts,omitempty"`
	Data      string             `json:"data,omitempty"`
	Parsed    bool               `json:"parsed,omitempty"`
}

// InnerInstructionGroup holds the inner instructions emitted while
// executing the top-level instruction at Index.
type InnerInstructionGroup struct {
	Index        uint16        `json:"index"`
	Instructions []Instruction `json:"instructions"`
}

// RawTransaction is the ledger record the decode pipeline consumes.
// It is owned by the transaction source; the pipeline borrows it and
// never mutates or retains it.
type RawTransaction struct {
	Signature    string                  `json:"signature"`
	Slot         uint64                  `json:"slot"`
	BlockTime    *int64                  `json:"block_time,omitempty"`
	Failed       bool                    `json:"failed"`
	Instructions []Instruction           `json:"instructions"`
	Inner        []InnerInstructionGroup `json:"inner_instructions"`
}

// SignatureInfo is one entry of a wallet's signature listing.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
}

// rawTransactionFromResult converts a fetched RPC transaction into the
// domain RawTransaction. Account keys from address lookup tables are
// appended after the static message keys, matching the runtime's index
// space for versioned transactions.
func rawTransactionFromResult(signature string, result *rpc.GetTransactionResult) (*RawTransaction, error) {
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, err
	}

	accountKeys := tx.Message.AccountKeys
	if result.Meta != nil {
		accountKeys = append(accountKeys, result.Meta.LoadedAddresses.Writable...)
		accountKeys = append(accountKeys, result.Meta.LoadedAddresses.ReadOnly...)
	}

	raw := &RawTransaction{
		Signature: signature,
		Slot:      result.Slot,
	}
	if result.BlockTime != nil {
		bt := int64(*result.BlockTime)
		raw.BlockTime = &bt
	}
	if result.Meta != nil && result.Meta.Err != nil {
		raw.Failed = true
	}

	for _, ix := range tx.Message.Instructions {
		raw.Instructions = append(raw.Instructions, compiledToDomain(ix, accountKeys))
	}
	if result.Meta != nil {
		for _, group := range result.Meta.InnerInstructions {
			g := InnerInstructionGroup{Index: group.Index}
			for _, ix := range group.Instructions {
				g.Instructions = append(g.Instructions, compiledToDomain(solana.CompiledInstruction{
					ProgramIDIndex: ix.ProgramIDIndex,
					Accounts:       ix.Accounts,
					Data:           ix.Data,
				}, accountKeys))
			}
			raw.Inner = append(raw.Inner, g)
		}
	}

	return raw, nil
}

func compiledToDomain(ix solana.CompiledInstruction, accountKeys []solana.PublicKey) Instruction {
	out := Instruction{Data: ix.Data.String()}
	if int(ix.ProgramIDIndex) < len(accountKeys) {
		out.ProgramID = accountKeys[ix.ProgramIDIndex]
	}
	for _, idx := range ix.Accounts {
		if int(idx) < len(accountKeys) {
			out.Accounts = append(out.Accounts, accountKeys[idx])
		}
	}
	return out
}
