// Package memo implements the SPL Memo program: it validates the
// instruction data as UTF-8 and records it in the execution logs.
//
// Program ID: MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr
package memo

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

var (
	// ErrInvalidUTF8 is returned when the memo payload is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("memo is not valid utf-8")
	// ErrMissingSignature is returned when a listed signer did not sign.
	ErrMissingSignature = errors.New("memo signer did not sign")
)

// MemoProgram implements the SPL Memo program.
type MemoProgram struct {
	ProgramID types.Pubkey
}

// New creates a new MemoProgram instance.
func New() *MemoProgram {
	return &MemoProgram{
		ProgramID: types.MemoProgramID,
	}
}

// Execute validates and logs the memo. Any accounts listed must have
// signed.
func (p *MemoProgram) Execute(ctx *runtime.ExecutionContext, instruction *types.Instruction) error {
	for i := 0; i < ctx.AccountCount(); i++ {
		info, err := ctx.GetAccountByIndex(i)
		if err != nil {
			return err
		}
		if !info.IsSigner {
			return fmt.Errorf("%w: %s", ErrMissingSignature, info.Pubkey)
		}
	}
	if !utf8.Valid(instruction.Data) {
		return ErrInvalidUTF8
	}
	ctx.Logf("memo: %s", instruction.Data)
	return nil
}

// GetProgramID returns the Memo program's public key.
func (p *MemoProgram) GetProgramID() types.Pubkey {
	return p.ProgramID
}

// NewMemoInstruction builds a memo instruction carrying text.
func NewMemoInstruction(text string) *types.Instruction {
	return &types.Instruction{
		ProgramID: types.MemoProgramID,
		Data:      []byte(text),
	}
}
