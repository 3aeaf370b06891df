// Package token implements the SPL Token Program subset backing card-stamp.
//
// The card program needs exactly the token operations its transfer legs
// and provisioning exercise:
//   - Initializing mints and token accounts
//   - Transferring tokens, checked against the mint's decimals
//   - Minting tokens (test fixtures fund accounts through it)
//
// Program ID: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
package token

import (
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// TokenProgram implements the SPL Token Program.
type TokenProgram struct {
	// ProgramID is the Token Program's public key
	ProgramID types.Pubkey
}

// New creates a new TokenProgram instance.
func New() *TokenProgram {
	return &TokenProgram{
		ProgramID: types.TokenProgramID,
	}
}

// Execute executes a Token Program instruction.
// The instruction format is:
//   - First byte: instruction discriminator
//   - Remaining bytes: instruction-specific data
func (p *TokenProgram) Execute(ctx *runtime.ExecutionContext, instruction *types.Instruction) error {
	discriminator, err := ParseInstructionDiscriminator(instruction.Data)
	if err != nil {
		return err
	}

	var instructionData []byte
	if len(instruction.Data) > 1 {
		instructionData = instruction.Data[1:]
	}

	switch discriminator {
	case InstructionInitializeMint2:
		var inst InitializeMint2Instruction
		if err := inst.Decode(instructionData); err != nil {
			return err
		}
		return handleInitializeMint2(ctx, &inst)

	case InstructionInitializeAccount3:
		var inst InitializeAccount3Instruction
		if err := inst.Decode(instructionData); err != nil {
			return err
		}
		return handleInitializeAccount3(ctx, &inst)

	case InstructionTransfer:
		var inst TransferInstruction
		if err := inst.Decode(instructionData); err != nil {
			return err
		}
		return handleTransfer(ctx, &inst)

	case InstructionTransferChecked:
		var inst TransferCheckedInstruction
		if err := inst.Decode(instructionData); err != nil {
			return err
		}
		return handleTransferChecked(ctx, &inst)

	case InstructionMintTo:
		var inst MintToInstruction
		if err := inst.Decode(instructionData); err != nil {
			return err
		}
		return handleMintTo(ctx, &inst)

	default:
		return fmt.Errorf("%w: unknown instruction %d", ErrInvalidInstruction, discriminator)
	}
}

// GetProgramID returns the Token Program's public key.
func (p *TokenProgram) GetProgramID() types.Pubkey {
	return p.ProgramID
}

// IsTokenProgram checks if a pubkey is the Token Program.
func IsTokenProgram(pubkey types.Pubkey) bool {
	return pubkey == types.TokenProgramID
}
