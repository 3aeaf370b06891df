package engine

import (
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Result is the outcome of executing one instruction.
type Result struct {
	// Success is true when the instruction completed and its effects
	// were committed.
	Success bool

	// Err is the first failure, nil on success.
	Err error

	// Logs are the execution logs, present on success and failure.
	Logs []string

	// Deltas are the committed account changes, empty unless Success.
	Deltas []types.AccountDelta

	// DeltaHash is the Merkle hash over Deltas, zero unless Success.
	DeltaHash types.Hash
}

// CreatedAccounts returns the pubkeys of accounts this execution created.
func (r *Result) CreatedAccounts() []types.Pubkey {
	var created []types.Pubkey
	for _, delta := range r.Deltas {
		if delta.IsCreation() {
			created = append(created, delta.Pubkey)
		}
	}
	return created
}

// Delta returns the delta for a pubkey, or nil if the account was not
// touched.
func (r *Result) Delta(pubkey types.Pubkey) *types.AccountDelta {
	for i := range r.Deltas {
		if r.Deltas[i].Pubkey == pubkey {
			return &r.Deltas[i]
		}
	}
	return nil
}
