package runtime

import (
	"errors"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// CPI errors
var (
	ErrCPIDepthExceeded   = errors.New("maximum CPI depth exceeded")
	ErrNoProgramRegistry  = errors.New("no program registry available for CPI")
	ErrSignerEscalation   = errors.New("instruction requires a signature the caller cannot provide")
	ErrWritableEscalation = errors.New("instruction requires write access the caller does not hold")
)

// Invoke performs a cross-program invocation with no PDA signers.
func (ctx *ExecutionContext) Invoke(ix *types.Instruction) error {
	return ctx.InvokeSigned(ix, nil)
}

// InvokeSigned performs a cross-program invocation. Each entry of
// signerSeeds derives a PDA under the calling program; those addresses
// are granted signer privilege in the callee, which is what lets a
// program authorize operations on accounts it controls without a
// private key.
//
// Account privileges in the callee are always a subset of the caller's:
// an account can only be a signer in the callee if it signed the outer
// transaction or is one of the derived signers, and only writable if
// the caller holds it writable.
func (ctx *ExecutionContext) InvokeSigned(ix *types.Instruction, signerSeeds [][][]byte) error {
	if ctx.Depth >= MaxCPIDepth {
		return ErrCPIDepthExceeded
	}
	if ctx.Registry == nil {
		return ErrNoProgramRegistry
	}

	executor, ok := ctx.Registry.GetProgram(ix.ProgramID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, ix.ProgramID.String())
	}

	// Derive the PDAs this program may sign for.
	pdaSigners := make(map[types.Pubkey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		pda, err := CreateProgramAddress(seeds, ctx.ProgramID)
		if err != nil {
			return fmt.Errorf("derive signer: %w", err)
		}
		pdaSigners[pda] = true
	}

	// Build the callee's account view from the caller's accounts. A
	// pubkey listed in several positions gets one shared clone with
	// OR-merged privileges, matching how the top-level loader treats
	// duplicate metas.
	calleeAccounts := make([]*AccountInfo, len(ix.Accounts))
	seen := make(map[types.Pubkey]*AccountInfo, len(ix.Accounts))
	uniqueCaller := make([]*AccountInfo, 0, len(ix.Accounts))
	uniqueCallee := make([]*AccountInfo, 0, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		callerAcc, err := ctx.GetAccount(meta.Pubkey)
		if err != nil {
			return err
		}
		if meta.IsSigner && !callerAcc.IsSigner && !pdaSigners[meta.Pubkey] {
			return fmt.Errorf("%w: %s", ErrSignerEscalation, meta.Pubkey.String())
		}
		if meta.IsWritable && !callerAcc.IsWritable {
			return fmt.Errorf("%w: %s", ErrWritableEscalation, meta.Pubkey.String())
		}

		callee, ok := seen[meta.Pubkey]
		if !ok {
			callee = callerAcc.Clone()
			callee.IsSigner = false
			callee.IsWritable = false
			seen[meta.Pubkey] = callee
			uniqueCaller = append(uniqueCaller, callerAcc)
			uniqueCallee = append(uniqueCallee, callee)
		}
		callee.IsSigner = callee.IsSigner || meta.IsSigner
		callee.IsWritable = callee.IsWritable || meta.IsWritable
		calleeAccounts[i] = callee
	}

	child := NewExecutionContext(ix.ProgramID, calleeAccounts, ix.Data)
	child.Registry = ctx.Registry
	child.Depth = ctx.Depth + 1
	child.CallerStack = append(append([]types.Pubkey{}, ctx.CallerStack...), ctx.ProgramID)
	child.RentLamportsPerByteYear = ctx.RentLamportsPerByteYear
	child.RentExemptionThreshold = ctx.RentExemptionThreshold

	ctx.Logf("Program %s invoke [%d]", ix.ProgramID.String(), child.Depth)

	err := executor.Execute(child, ix)

	// Surface the callee's logs in the caller's buffer.
	for _, msg := range child.GetLogs() {
		_ = ctx.AddLog(msg)
	}

	if err != nil {
		ctx.Logf("Program %s failed: %v", ix.ProgramID.String(), err)
		return err
	}
	ctx.Logf("Program %s success", ix.ProgramID.String())

	return ctx.propagateAccountChanges(uniqueCaller, uniqueCallee)
}

// propagateAccountChanges copies account modifications from callee back
// to caller, once per distinct account. Only writable accounts are
// updated.
func (ctx *ExecutionContext) propagateAccountChanges(
	callerAccounts []*AccountInfo,
	calleeAccounts []*AccountInfo,
) error {
	for i, calleeAcc := range calleeAccounts {
		if !calleeAcc.IsWritable {
			continue
		}

		callerAcc := callerAccounts[i]
		if !callerAcc.IsWritable {
			return fmt.Errorf("%w: account %s", ErrReadOnlyModified, calleeAcc.Pubkey.String())
		}

		*callerAcc.Lamports = *calleeAcc.Lamports

		if len(calleeAcc.Data) != len(callerAcc.Data) {
			callerAcc.Data = make([]byte, len(calleeAcc.Data))
		}
		copy(callerAcc.Data, calleeAcc.Data)

		callerAcc.Owner = calleeAcc.Owner
	}
	return nil
}
