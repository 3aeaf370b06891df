// Package engine executes instructions against an accounts database with
// all-or-nothing commit semantics: on success every writable account is
// persisted, on failure nothing is.
package engine

import (
	"errors"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/accounts"
	"github.com/GotokHQ/card-stamp/pkg/programs/ata"
	"github.com/GotokHQ/card-stamp/pkg/programs/card"
	"github.com/GotokHQ/card-stamp/pkg/programs/memo"
	"github.com/GotokHQ/card-stamp/pkg/programs/system"
	"github.com/GotokHQ/card-stamp/pkg/programs/token"
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Executor errors
var (
	// ErrNilInstruction indicates a nil instruction was submitted.
	ErrNilInstruction = errors.New("nil instruction")

	// ErrProgramNotFound indicates the instruction's program is not registered.
	ErrProgramNotFound = errors.New("program not found")
)

// Executor runs instructions against an AccountsDB through the program
// registry.
type Executor struct {
	db       accounts.AccountsDB
	registry *runtime.ProgramRegistry
}

// NewExecutor creates a new executor.
func NewExecutor(db accounts.AccountsDB, registry *runtime.ProgramRegistry) *Executor {
	return &Executor{
		db:       db,
		registry: registry,
	}
}

// DefaultRegistry returns a registry with the native programs the card
// program depends on, plus the card program itself.
func DefaultRegistry() *runtime.ProgramRegistry {
	registry := runtime.NewProgramRegistry()
	registry.RegisterProgramWithName(types.SystemProgramID, "system", system.New())
	registry.RegisterProgramWithName(types.TokenProgramID, "token", token.New())
	registry.RegisterProgramWithName(types.AssociatedTokenProgramID, "associated-token", ata.New())
	registry.RegisterProgramWithName(types.MemoProgramID, "memo", memo.New())
	registry.RegisterProgramWithName(types.CardProgramID, "card", card.New())
	return registry
}

// loadedAccount pairs the mutable execution view of an account with the
// state it was loaded from.
type loadedAccount struct {
	info *runtime.AccountInfo
	old  *types.Account // nil if the account did not exist
}

// Execute runs one instruction to completion. On success, all writable
// accounts are committed to the database and the result carries their
// deltas; on failure, the database is untouched and the result carries
// the error and any logs produced before the abort.
func (e *Executor) Execute(instruction *types.Instruction) *Result {
	result := &Result{}

	if instruction == nil {
		result.Err = ErrNilInstruction
		return result
	}

	program, ok := e.registry.GetProgram(instruction.ProgramID)
	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrProgramNotFound, instruction.ProgramID)
		return result
	}

	loaded, infos, err := e.loadAccounts(instruction)
	if err != nil {
		result.Err = err
		return result
	}

	ctx := runtime.NewExecutionContext(instruction.ProgramID, infos, instruction.Data)
	ctx.Registry = e.registry

	execErr := program.Execute(ctx, instruction)
	result.Logs = ctx.GetLogs()
	if execErr != nil {
		result.Err = execErr
		return result
	}

	deltas, err := e.commit(loaded)
	if err != nil {
		result.Err = err
		return result
	}

	result.Success = true
	result.Deltas = deltas
	result.DeltaHash = accounts.ComputeDeltaHash(deltas)
	return result
}

// loadAccounts builds the execution view of the instruction's accounts.
// Duplicate pubkeys share a single AccountInfo with merged signer and
// writable flags, so a mutation through one position is visible through
// every other.
func (e *Executor) loadAccounts(instruction *types.Instruction) ([]*loadedAccount, []*runtime.AccountInfo, error) {
	byPubkey := make(map[types.Pubkey]*loadedAccount)
	var unique []*loadedAccount
	infos := make([]*runtime.AccountInfo, 0, len(instruction.Accounts))

	for _, meta := range instruction.Accounts {
		if existing, ok := byPubkey[meta.Pubkey]; ok {
			existing.info.IsSigner = existing.info.IsSigner || meta.IsSigner
			existing.info.IsWritable = existing.info.IsWritable || meta.IsWritable
			infos = append(infos, existing.info)
			continue
		}

		stored, err := e.db.GetAccount(meta.Pubkey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load account %s: %w", meta.Pubkey, err)
		}

		info := &runtime.AccountInfo{
			Pubkey:     meta.Pubkey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
		if stored != nil {
			lamports := uint64(stored.Lamports)
			info.Lamports = &lamports
			info.Data = append([]byte(nil), stored.Data...)
			info.Owner = stored.Owner
			info.Executable = stored.Executable
			info.RentEpoch = uint64(stored.RentEpoch)
		} else {
			// Nonexistent accounts enter execution as empty system
			// accounts, eligible for creation.
			lamports := uint64(0)
			info.Lamports = &lamports
			info.Owner = types.SystemProgramID
		}

		la := &loadedAccount{info: info, old: stored}
		byPubkey[meta.Pubkey] = la
		unique = append(unique, la)
		infos = append(infos, info)
	}

	return unique, infos, nil
}

// commit persists every writable account that actually changed and
// returns the resulting deltas.
func (e *Executor) commit(loaded []*loadedAccount) ([]types.AccountDelta, error) {
	var deltas []types.AccountDelta

	for _, la := range loaded {
		if !la.info.IsWritable {
			continue
		}

		newAccount := &types.Account{
			Lamports:   types.Lamports(*la.info.Lamports),
			Data:       la.info.Data,
			Owner:      la.info.Owner,
			Executable: la.info.Executable,
			RentEpoch:  types.Epoch(la.info.RentEpoch),
		}

		if la.old == nil && newAccount.IsEmpty() {
			continue // never existed, nothing created
		}
		if la.old != nil && accountsEqual(la.old, newAccount) {
			continue // untouched
		}

		if newAccount.IsEmpty() {
			if err := e.db.DeleteAccount(la.info.Pubkey); err != nil {
				return nil, fmt.Errorf("failed to delete account %s: %w", la.info.Pubkey, err)
			}
			deltas = append(deltas, types.AccountDelta{
				Pubkey:     la.info.Pubkey,
				OldAccount: la.old,
			})
			continue
		}

		if err := e.db.SetAccount(la.info.Pubkey, newAccount); err != nil {
			return nil, fmt.Errorf("failed to store account %s: %w", la.info.Pubkey, err)
		}
		deltas = append(deltas, types.AccountDelta{
			Pubkey:     la.info.Pubkey,
			OldAccount: la.old,
			NewAccount: newAccount,
		})
	}

	return deltas, nil
}

// accountsEqual reports whether two account states are identical.
func accountsEqual(a, b *types.Account) bool {
	if a.Lamports != b.Lamports || a.Owner != b.Owner ||
		a.Executable != b.Executable || a.RentEpoch != b.RentEpoch {
		return false
	}
	if len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}
