// Package ata implements the Associated Token Account Program subset
// backing card-stamp.
//
// An associated token account is the canonical token account for a
// (wallet, mint) pair: a PDA of the associated token program seeded
// with (wallet, token_program, mint). Create provisions it by funding,
// allocating, and assigning the address through the System Program,
// signed with the derivation seeds, then initializing it through the
// Token Program.
//
// Program ID: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
package ata

import (
	"errors"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/programs/system"
	"github.com/GotokHQ/card-stamp/pkg/programs/token"
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Associated Token Account Program errors
var (
	// ErrInvalidInstructionData indicates the instruction data is malformed.
	ErrInvalidInstructionData = errors.New("invalid instruction data")

	// ErrInvalidNumberOfAccounts indicates an incorrect number of accounts were provided.
	ErrInvalidNumberOfAccounts = errors.New("invalid number of accounts")

	// ErrInvalidAssociatedAccount indicates the provided address is not the derived ATA.
	ErrInvalidAssociatedAccount = errors.New("address does not match derived associated token account")

	// ErrAlreadyInUse indicates the associated account already exists.
	ErrAlreadyInUse = errors.New("associated token account already in use")

	// ErrAccountNotSigner indicates a required signer is missing.
	ErrAccountNotSigner = errors.New("account is not a signer")
)

// Instruction discriminators (first byte; empty data means Create for
// compatibility with the original program).
const (
	InstructionCreate           uint8 = 0
	InstructionCreateIdempotent uint8 = 1
)

// AssociatedTokenProgram implements the Associated Token Account Program.
type AssociatedTokenProgram struct {
	// ProgramID is the Associated Token Account Program's public key
	ProgramID types.Pubkey
}

// New creates a new AssociatedTokenProgram instance.
func New() *AssociatedTokenProgram {
	return &AssociatedTokenProgram{
		ProgramID: types.AssociatedTokenProgramID,
	}
}

// Execute executes an Associated Token Account Program instruction.
func (p *AssociatedTokenProgram) Execute(ctx *runtime.ExecutionContext, instruction *types.Instruction) error {
	discriminator := InstructionCreate
	if len(instruction.Data) > 0 {
		discriminator = instruction.Data[0]
	}

	switch discriminator {
	case InstructionCreate:
		return handleCreate(ctx, false)
	case InstructionCreateIdempotent:
		return handleCreate(ctx, true)
	default:
		return fmt.Errorf("%w: unknown instruction %d", ErrInvalidInstructionData, discriminator)
	}
}

// GetProgramID returns the Associated Token Account Program's public key.
func (p *AssociatedTokenProgram) GetProgramID() types.Pubkey {
	return p.ProgramID
}

// handleCreate handles the Create and CreateIdempotent instructions.
// Account layout:
//
//	[0] payer (signer, writable) - Funds the new account
//	[1] associated token account (writable)
//	[2] wallet - Owner of the new account
//	[3] mint - The token mint
//	[4] system program
//	[5] token program
func handleCreate(ctx *runtime.ExecutionContext, idempotent bool) error {
	if ctx.AccountCount() < 6 {
		return fmt.Errorf("%w: Create requires 6 accounts, got %d",
			ErrInvalidNumberOfAccounts, ctx.AccountCount())
	}

	payerAcc, err := ctx.GetAccountByIndex(0)
	if err != nil {
		return err
	}
	if !payerAcc.IsSigner {
		return fmt.Errorf("%w: payer", ErrAccountNotSigner)
	}

	ataAcc, err := ctx.GetAccountByIndex(1)
	if err != nil {
		return err
	}
	walletAcc, err := ctx.GetAccountByIndex(2)
	if err != nil {
		return err
	}
	mintAcc, err := ctx.GetAccountByIndex(3)
	if err != nil {
		return err
	}

	derived, bump, err := runtime.DeriveAssociatedTokenAddress(
		walletAcc.Pubkey, mintAcc.Pubkey, types.TokenProgramID)
	if err != nil {
		return err
	}
	if derived != ataAcc.Pubkey {
		return fmt.Errorf("%w: expected %s", ErrInvalidAssociatedAccount, derived.String())
	}

	if len(ataAcc.Data) > 0 {
		if idempotent {
			// Existing account is acceptable as long as it is a valid
			// token account for this wallet and mint.
			existing, err := token.DeserializeTokenAccount(ataAcc.Data)
			if err != nil {
				return err
			}
			if existing.Owner != walletAcc.Pubkey || existing.Mint != mintAcc.Pubkey {
				return ErrInvalidAssociatedAccount
			}
			return nil
		}
		return ErrAlreadyInUse
	}

	signerSeeds := [][]byte{
		walletAcc.Pubkey[:],
		types.TokenProgramID[:],
		mintAcc.Pubkey[:],
		{bump},
	}

	// Top up to rent exemption, then allocate and assign the address,
	// all signed with the derivation seeds.
	required := ctx.RentExemptMinimum(token.TokenAccountSize)
	if *ataAcc.Lamports < required {
		ix := system.NewTransferInstruction(payerAcc.Pubkey, ataAcc.Pubkey, required-*ataAcc.Lamports)
		if err := ctx.Invoke(ix); err != nil {
			return err
		}
	}

	if err := ctx.InvokeSigned(
		system.NewAllocateInstruction(ataAcc.Pubkey, token.TokenAccountSize),
		[][][]byte{signerSeeds},
	); err != nil {
		return err
	}

	if err := ctx.InvokeSigned(
		system.NewAssignInstruction(ataAcc.Pubkey, types.TokenProgramID),
		[][][]byte{signerSeeds},
	); err != nil {
		return err
	}

	return ctx.Invoke(token.NewInitializeAccount3Instruction(
		ataAcc.Pubkey, mintAcc.Pubkey, walletAcc.Pubkey))
}

// NewCreateInstruction builds a full Create instruction.
func NewCreateInstruction(payer, associatedAccount, wallet, mint types.Pubkey) *types.Instruction {
	return &types.Instruction{
		ProgramID: types.AssociatedTokenProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: associatedAccount, IsSigner: false, IsWritable: true},
			{Pubkey: wallet, IsSigner: false, IsWritable: false},
			{Pubkey: mint, IsSigner: false, IsWritable: false},
			{Pubkey: types.SystemProgramID, IsSigner: false, IsWritable: false},
			{Pubkey: types.TokenProgramID, IsSigner: false, IsWritable: false},
		},
		Data: []byte{InstructionCreate},
	}
}
