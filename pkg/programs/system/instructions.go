package system

import (
	"encoding/binary"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// System Program instruction discriminators (first 4 bytes, little-endian uint32)
const (
	InstructionCreateAccount uint32 = 0
	InstructionAssign        uint32 = 1
	InstructionTransfer      uint32 = 2
	InstructionAllocate      uint32 = 8
)

// ParseInstructionDiscriminator extracts the discriminator from instruction data.
func ParseInstructionDiscriminator(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes for discriminator, got %d",
			ErrInvalidInstructionData, len(data))
	}
	return binary.LittleEndian.Uint32(data[0:4]), nil
}

// CreateAccountInstruction represents a CreateAccount instruction.
// Accounts:
//
//	[0] funding account (signer, writable)
//	[1] new account (signer, writable)
type CreateAccountInstruction struct {
	Lamports uint64       // Lamports to fund the new account with
	Space    uint64       // Data size to allocate
	Owner    types.Pubkey // Program that will own the new account
}

// Decode decodes a CreateAccount instruction from bytes.
func (inst *CreateAccountInstruction) Decode(data []byte) error {
	if len(data) < 48 {
		return fmt.Errorf("%w: CreateAccount requires 48 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	inst.Lamports = binary.LittleEndian.Uint64(data[0:8])
	inst.Space = binary.LittleEndian.Uint64(data[8:16])
	copy(inst.Owner[:], data[16:48])
	return nil
}

// Encode encodes a CreateAccount instruction to bytes.
func (inst *CreateAccountInstruction) Encode() []byte {
	data := make([]byte, 4+48)
	binary.LittleEndian.PutUint32(data[0:4], InstructionCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], inst.Lamports)
	binary.LittleEndian.PutUint64(data[12:20], inst.Space)
	copy(data[20:52], inst.Owner[:])
	return data
}

// AssignInstruction represents an Assign instruction.
// Accounts:
//
//	[0] account to assign (signer, writable)
type AssignInstruction struct {
	Owner types.Pubkey // New owner program
}

// Decode decodes an Assign instruction from bytes.
func (inst *AssignInstruction) Decode(data []byte) error {
	if len(data) < 32 {
		return fmt.Errorf("%w: Assign requires 32 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	copy(inst.Owner[:], data[0:32])
	return nil
}

// Encode encodes an Assign instruction to bytes.
func (inst *AssignInstruction) Encode() []byte {
	data := make([]byte, 4+32)
	binary.LittleEndian.PutUint32(data[0:4], InstructionAssign)
	copy(data[4:36], inst.Owner[:])
	return data
}

// TransferInstruction represents a Transfer instruction.
// Accounts:
//
//	[0] source account (signer, writable)
//	[1] destination account (writable)
type TransferInstruction struct {
	Lamports uint64 // Lamports to transfer
}

// Decode decodes a Transfer instruction from bytes.
func (inst *TransferInstruction) Decode(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: Transfer requires 8 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	inst.Lamports = binary.LittleEndian.Uint64(data[0:8])
	return nil
}

// Encode encodes a Transfer instruction to bytes.
func (inst *TransferInstruction) Encode() []byte {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], InstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:12], inst.Lamports)
	return data
}

// AllocateInstruction represents an Allocate instruction.
// Accounts:
//
//	[0] account to allocate (signer, writable)
type AllocateInstruction struct {
	Space uint64 // Data size to allocate
}

// Decode decodes an Allocate instruction from bytes.
func (inst *AllocateInstruction) Decode(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: Allocate requires 8 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	inst.Space = binary.LittleEndian.Uint64(data[0:8])
	return nil
}

// Encode encodes an Allocate instruction to bytes.
func (inst *AllocateInstruction) Encode() []byte {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], InstructionAllocate)
	binary.LittleEndian.PutUint64(data[4:12], inst.Space)
	return data
}

// NewCreateAccountInstruction builds a full CreateAccount instruction.
func NewCreateAccountInstruction(funding, newAccount types.Pubkey, lamports, space uint64, owner types.Pubkey) *types.Instruction {
	inst := CreateAccountInstruction{Lamports: lamports, Space: space, Owner: owner}
	return &types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: funding, IsSigner: true, IsWritable: true},
			{Pubkey: newAccount, IsSigner: true, IsWritable: true},
		},
		Data: inst.Encode(),
	}
}

// NewAssignInstruction builds a full Assign instruction.
func NewAssignInstruction(account, owner types.Pubkey) *types.Instruction {
	inst := AssignInstruction{Owner: owner}
	return &types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: account, IsSigner: true, IsWritable: true},
		},
		Data: inst.Encode(),
	}
}

// NewTransferInstruction builds a full Transfer instruction.
func NewTransferInstruction(from, to types.Pubkey, lamports uint64) *types.Instruction {
	inst := TransferInstruction{Lamports: lamports}
	return &types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsSigner: false, IsWritable: true},
		},
		Data: inst.Encode(),
	}
}

// NewAllocateInstruction builds a full Allocate instruction.
func NewAllocateInstruction(account types.Pubkey, space uint64) *types.Instruction {
	inst := AllocateInstruction{Space: space}
	return &types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: account, IsSigner: true, IsWritable: true},
		},
		Data: inst.Encode(),
	}
}
