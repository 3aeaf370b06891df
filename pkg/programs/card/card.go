// Package card implements the card-stamp program.
//
// A single Init instruction atomically distributes up to four transfer
// legs (optional platform fee, optional referrer fee, principal, network
// fee reimbursement), picking the native or token path per leg off the
// asset involved and lazily provisioning associated holding accounts,
// then registers a one-time stamp receipt at an address derived from the
// payment reference.
//
// Program ID: cardWhHWcRsRMGw2xoudhYKtby35TD3sCQTGTSHGtrg
package card

import (
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// CardProgram implements the card-stamp program.
type CardProgram struct {
	// ProgramID is the card program's public key
	ProgramID types.Pubkey
}

// New creates a new CardProgram instance.
func New() *CardProgram {
	return &CardProgram{
		ProgramID: types.CardProgramID,
	}
}

// Execute executes a card program instruction. Only Init exists; the
// first byte selects it.
func (p *CardProgram) Execute(ctx *runtime.ExecutionContext, instruction *types.Instruction) error {
	args, err := DecodeInstruction(instruction.Data)
	if err != nil {
		return err
	}
	ctx.Logf("init: reference %q amount %d", args.Reference, args.Amount)
	return processInit(ctx, args)
}

// GetProgramID returns the card program's public key.
func (p *CardProgram) GetProgramID() types.Pubkey {
	return p.ProgramID
}
