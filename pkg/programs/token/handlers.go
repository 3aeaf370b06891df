package token

import (
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/runtime"
)

// handleInitializeMint2 handles the InitializeMint2 instruction.
// Account layout:
//
//	[0] mint (writable) - The mint to initialize
func handleInitializeMint2(ctx *runtime.ExecutionContext, inst *InitializeMint2Instruction) error {
	if ctx.AccountCount() < 1 {
		return fmt.Errorf("%w: InitializeMint2 requires 1 account, got %d",
			ErrInvalidNumberOfAccounts, ctx.AccountCount())
	}

	mintAcc, err := ctx.GetAccountByIndex(0)
	if err != nil {
		return err
	}
	if !mintAcc.IsWritable {
		return fmt.Errorf("%w: mint account", ErrAccountNotWritable)
	}

	if len(mintAcc.Data) >= MintSize {
		existing, err := DeserializeMint(mintAcc.Data)
		if err == nil && existing.IsInitialized {
			return ErrAlreadyInitialized
		}
	}

	if len(mintAcc.Data) < MintSize {
		return fmt.Errorf("%w: mint account data too small, expected %d bytes",
			ErrInvalidAccountData, MintSize)
	}

	mint := NewMint(inst.Decimals, &inst.MintAuthority, inst.FreezeAuthority)
	copy(mintAcc.Data, mint.Serialize())

	return nil
}

// handleInitializeAccount3 handles the InitializeAccount3 instruction.
// Account layout:
//
//	[0] account (writable) - The account to initialize
//	[1] mint - The mint for this account
func handleInitializeAccount3(ctx *runtime.ExecutionContext, inst *InitializeAccount3Instruction) error {
	if ctx.AccountCount() < 2 {
		return fmt.Errorf("%w: InitializeAccount3 requires 2 accounts, got %d",
			ErrInvalidNumberOfAccounts, ctx.AccountCount())
	}

	tokenAcc, err := ctx.GetAccountByIndex(0)
	if err != nil {
		return err
	}
	if !tokenAcc.IsWritable {
		return fmt.Errorf("%w: token account", ErrAccountNotWritable)
	}

	mintAcc, err := ctx.GetAccountByIndex(1)
	if err != nil {
		return err
	}

	if len(tokenAcc.Data) >= TokenAccountSize {
		existing, err := DeserializeTokenAccount(tokenAcc.Data)
		if err == nil && existing.State != AccountStateUninitialized {
			return ErrAlreadyInitialized
		}
	}

	if len(tokenAcc.Data) < TokenAccountSize {
		return fmt.Errorf("%w: token account data too small, expected %d bytes",
			ErrInvalidAccountData, TokenAccountSize)
	}

	if len(mintAcc.Data) < MintSize {
		return fmt.Errorf("%w: mint account data too small", ErrInvalidMint)
	}
	mint, err := DeserializeMint(mintAcc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}
	if !mint.IsInitialized {
		return fmt.Errorf("%w: mint not initialized", ErrInvalidMint)
	}

	account := NewTokenAccount(mintAcc.Pubkey, inst.Owner)
	copy(tokenAcc.Data, account.Serialize())

	return nil
}

// handleTransfer handles the Transfer instruction.
// Account layout:
//
//	[0] source (writable) - The source token account
//	[1] destination (writable) - The destination token account
//	[2] authority (signer) - The source account owner or delegate
func handleTransfer(ctx *runtime.ExecutionContext, inst *TransferInstruction) error {
	if ctx.AccountCount() < 3 {
		return fmt.Errorf("%w: Transfer requires 3 accounts, got %d",
			ErrInvalidNumberOfAccounts, ctx.AccountCount())
	}
	return transfer(ctx, 0, 1, 2, inst.Amount)
}

// handleTransferChecked handles the TransferChecked instruction.
// Like Transfer, but the mint travels with the instruction so the
// caller's expected decimals can be verified.
// Account layout:
//
//	[0] source (writable) - The source token account
//	[1] mint - The token mint
//	[2] destination (writable) - The destination token account
//	[3] authority (signer) - The source account owner or delegate
func handleTransferChecked(ctx *runtime.ExecutionContext, inst *TransferCheckedInstruction) error {
	if ctx.AccountCount() < 4 {
		return fmt.Errorf("%w: TransferChecked requires 4 accounts, got %d",
			ErrInvalidNumberOfAccounts, ctx.AccountCount())
	}

	mintAcc, err := ctx.GetAccountByIndex(1)
	if err != nil {
		return err
	}
	mint, err := DeserializeMint(mintAcc.Data)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if mint.Decimals != inst.Decimals {
		return ErrDecimalsMismatch
	}

	sourceAcc, err := ctx.GetAccountByIndex(0)
	if err != nil {
		return err
	}
	source, err := DeserializeTokenAccount(sourceAcc.Data)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if source.Mint != mintAcc.Pubkey {
		return ErrMintMismatch
	}

	return transfer(ctx, 0, 2, 3, inst.Amount)
}

// transfer moves tokens between the accounts at the given indices,
// enforcing initialization, freeze state, mint equality, and authority.
func transfer(ctx *runtime.ExecutionContext, sourceIdx, destIdx, authorityIdx int, amount uint64) error {
	sourceAcc, err := ctx.GetAccountByIndex(sourceIdx)
	if err != nil {
		return err
	}
	if !sourceAcc.IsWritable {
		return fmt.Errorf("%w: source account", ErrAccountNotWritable)
	}

	destAcc, err := ctx.GetAccountByIndex(destIdx)
	if err != nil {
		return err
	}
	if !destAcc.IsWritable {
		return fmt.Errorf("%w: destination account", ErrAccountNotWritable)
	}

	authorityAcc, err := ctx.GetAccountByIndex(authorityIdx)
	if err != nil {
		return err
	}
	if !authorityAcc.IsSigner {
		return fmt.Errorf("%w: authority", ErrAccountNotSigner)
	}

	source, err := DeserializeTokenAccount(sourceAcc.Data)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dest, err := DeserializeTokenAccount(destAcc.Data)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if source.State == AccountStateUninitialized {
		return fmt.Errorf("source: %w", ErrNotInitialized)
	}
	if dest.State == AccountStateUninitialized {
		return fmt.Errorf("destination: %w", ErrNotInitialized)
	}
	if source.IsFrozen() {
		return fmt.Errorf("source: %w", ErrAccountFrozen)
	}
	if dest.IsFrozen() {
		return fmt.Errorf("destination: %w", ErrAccountFrozen)
	}
	if source.Mint != dest.Mint {
		return ErrMintMismatch
	}

	isOwner := source.Owner == authorityAcc.Pubkey
	isDelegate := source.Delegate.IsSome && source.Delegate.Value == authorityAcc.Pubkey
	if !isOwner && !isDelegate {
		return ErrOwnerMismatch
	}

	available := source.Amount
	if isDelegate {
		available = source.DelegatedAmount
	}
	if amount > available {
		return ErrInsufficientFunds
	}

	source.Amount -= amount
	dest.Amount += amount
	if isDelegate {
		source.DelegatedAmount -= amount
	}

	copy(sourceAcc.Data, source.Serialize())
	copy(destAcc.Data, dest.Serialize())

	return nil
}

// handleMintTo handles the MintTo instruction.
// Account layout:
//
//	[0] mint (writable) - The mint
//	[1] destination (writable) - The account to mint to
//	[2] mint_authority (signer) - The mint authority
func handleMintTo(ctx *runtime.ExecutionContext, inst *MintToInstruction) error {
	if ctx.AccountCount() < 3 {
		return fmt.Errorf("%w: MintTo requires 3 accounts, got %d",
			ErrInvalidNumberOfAccounts, ctx.AccountCount())
	}

	mintAcc, err := ctx.GetAccountByIndex(0)
	if err != nil {
		return err
	}
	if !mintAcc.IsWritable {
		return fmt.Errorf("%w: mint account", ErrAccountNotWritable)
	}

	destAcc, err := ctx.GetAccountByIndex(1)
	if err != nil {
		return err
	}
	if !destAcc.IsWritable {
		return fmt.Errorf("%w: destination account", ErrAccountNotWritable)
	}

	authorityAcc, err := ctx.GetAccountByIndex(2)
	if err != nil {
		return err
	}
	if !authorityAcc.IsSigner {
		return fmt.Errorf("%w: mint authority", ErrAccountNotSigner)
	}

	mint, err := DeserializeMint(mintAcc.Data)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if !mint.IsInitialized {
		return fmt.Errorf("mint: %w", ErrNotInitialized)
	}
	if !mint.MintAuthority.IsSome {
		return ErrFixedSupply
	}
	if mint.MintAuthority.Value != authorityAcc.Pubkey {
		return ErrOwnerMismatch
	}

	dest, err := DeserializeTokenAccount(destAcc.Data)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if dest.State == AccountStateUninitialized {
		return fmt.Errorf("destination: %w", ErrNotInitialized)
	}
	if dest.IsFrozen() {
		return fmt.Errorf("destination: %w", ErrAccountFrozen)
	}
	if dest.Mint != mintAcc.Pubkey {
		return ErrMintMismatch
	}

	if mint.Supply+inst.Amount < mint.Supply {
		return ErrOverflow
	}
	mint.Supply += inst.Amount
	dest.Amount += inst.Amount

	copy(mintAcc.Data, mint.Serialize())
	copy(destAcc.Data, dest.Serialize())

	return nil
}
