package token

import (
	"encoding/binary"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Token Program instruction discriminators (first byte of instruction data)
const (
	InstructionTransfer            uint8 = 3
	InstructionMintTo              uint8 = 7
	InstructionTransferChecked     uint8 = 12
	InstructionInitializeAccount3  uint8 = 18
	InstructionInitializeMint2     uint8 = 20
)

// ParseInstructionDiscriminator extracts the discriminator from instruction data.
func ParseInstructionDiscriminator(data []byte) (uint8, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: empty instruction data", ErrInvalidInstructionData)
	}
	return data[0], nil
}

// InitializeMint2Instruction represents an InitializeMint2 instruction.
// Accounts:
//
//	[0] mint (writable) - The mint to initialize
type InitializeMint2Instruction struct {
	Decimals        uint8         // Number of decimal places
	MintAuthority   types.Pubkey  // Authority to mint tokens
	FreezeAuthority *types.Pubkey // Optional authority to freeze accounts
}

// Decode decodes an InitializeMint2 instruction from bytes.
func (inst *InitializeMint2Instruction) Decode(data []byte) error {
	// Layout: decimals (1) + mint_authority (32) + freeze_authority presence (1) [+ freeze_authority (32)]
	if len(data) < 34 {
		return fmt.Errorf("%w: InitializeMint2 requires at least 34 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}

	inst.Decimals = data[0]
	copy(inst.MintAuthority[:], data[1:33])

	if data[33] == 1 {
		if len(data) < 66 {
			return fmt.Errorf("%w: InitializeMint2 with freeze authority requires 66 bytes",
				ErrInvalidInstructionData)
		}
		freezeAuth := types.Pubkey{}
		copy(freezeAuth[:], data[34:66])
		inst.FreezeAuthority = &freezeAuth
	}

	return nil
}

// Encode encodes an InitializeMint2 instruction to bytes.
func (inst *InitializeMint2Instruction) Encode() []byte {
	var data []byte
	if inst.FreezeAuthority != nil {
		data = make([]byte, 1+66)
		data[0] = InstructionInitializeMint2
		data[1] = inst.Decimals
		copy(data[2:34], inst.MintAuthority[:])
		data[34] = 1
		copy(data[35:67], inst.FreezeAuthority[:])
	} else {
		data = make([]byte, 1+34)
		data[0] = InstructionInitializeMint2
		data[1] = inst.Decimals
		copy(data[2:34], inst.MintAuthority[:])
	}
	return data
}

// InitializeAccount3Instruction represents an InitializeAccount3 instruction.
// The owner is carried in the instruction data instead of an account.
// Accounts:
//
//	[0] account (writable) - The account to initialize
//	[1] mint - The mint for this account
type InitializeAccount3Instruction struct {
	Owner types.Pubkey // Owner of the new account
}

// Decode decodes an InitializeAccount3 instruction from bytes.
func (inst *InitializeAccount3Instruction) Decode(data []byte) error {
	if len(data) < 32 {
		return fmt.Errorf("%w: InitializeAccount3 requires 32 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	copy(inst.Owner[:], data[0:32])
	return nil
}

// Encode encodes an InitializeAccount3 instruction to bytes.
func (inst *InitializeAccount3Instruction) Encode() []byte {
	data := make([]byte, 1+32)
	data[0] = InstructionInitializeAccount3
	copy(data[1:33], inst.Owner[:])
	return data
}

// TransferInstruction represents a Transfer instruction.
// Accounts:
//
//	[0] source (writable) - The source token account
//	[1] destination (writable) - The destination token account
//	[2] authority (signer) - The source account owner or delegate
type TransferInstruction struct {
	Amount uint64 // Amount of tokens to transfer
}

// Decode decodes a Transfer instruction from bytes.
func (inst *TransferInstruction) Decode(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: Transfer requires 8 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	inst.Amount = binary.LittleEndian.Uint64(data[0:8])
	return nil
}

// Encode encodes a Transfer instruction to bytes.
func (inst *TransferInstruction) Encode() []byte {
	data := make([]byte, 9)
	data[0] = InstructionTransfer
	binary.LittleEndian.PutUint64(data[1:9], inst.Amount)
	return data
}

// TransferCheckedInstruction represents a TransferChecked instruction.
// The mint is passed as an account so the program can verify decimals.
// Accounts:
//
//	[0] source (writable) - The source token account
//	[1] mint - The token mint
//	[2] destination (writable) - The destination token account
//	[3] authority (signer) - The source account owner or delegate
type TransferCheckedInstruction struct {
	Amount   uint64 // Amount of tokens to transfer
	Decimals uint8  // Expected mint decimals
}

// Decode decodes a TransferChecked instruction from bytes.
func (inst *TransferCheckedInstruction) Decode(data []byte) error {
	if len(data) < 9 {
		return fmt.Errorf("%w: TransferChecked requires 9 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	inst.Amount = binary.LittleEndian.Uint64(data[0:8])
	inst.Decimals = data[8]
	return nil
}

// Encode encodes a TransferChecked instruction to bytes.
func (inst *TransferCheckedInstruction) Encode() []byte {
	data := make([]byte, 10)
	data[0] = InstructionTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], inst.Amount)
	data[9] = inst.Decimals
	return data
}

// MintToInstruction represents a MintTo instruction.
// Accounts:
//
//	[0] mint (writable) - The mint
//	[1] destination (writable) - The account to mint to
//	[2] mint_authority (signer) - The mint authority
type MintToInstruction struct {
	Amount uint64 // Amount of tokens to mint
}

// Decode decodes a MintTo instruction from bytes.
func (inst *MintToInstruction) Decode(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: MintTo requires 8 bytes, got %d",
			ErrInvalidInstructionData, len(data))
	}
	inst.Amount = binary.LittleEndian.Uint64(data[0:8])
	return nil
}

// Encode encodes a MintTo instruction to bytes.
func (inst *MintToInstruction) Encode() []byte {
	data := make([]byte, 9)
	data[0] = InstructionMintTo
	binary.LittleEndian.PutUint64(data[1:9], inst.Amount)
	return data
}

// NewInitializeMint2Instruction builds a full InitializeMint2 instruction.
func NewInitializeMint2Instruction(mint types.Pubkey, decimals uint8, mintAuthority types.Pubkey, freezeAuthority *types.Pubkey) *types.Instruction {
	inst := InitializeMint2Instruction{Decimals: decimals, MintAuthority: mintAuthority, FreezeAuthority: freezeAuthority}
	return &types.Instruction{
		ProgramID: types.TokenProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: mint, IsSigner: false, IsWritable: true},
		},
		Data: inst.Encode(),
	}
}

// NewInitializeAccount3Instruction builds a full InitializeAccount3 instruction.
func NewInitializeAccount3Instruction(account, mint, owner types.Pubkey) *types.Instruction {
	inst := InitializeAccount3Instruction{Owner: owner}
	return &types.Instruction{
		ProgramID: types.TokenProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: account, IsSigner: false, IsWritable: true},
			{Pubkey: mint, IsSigner: false, IsWritable: false},
		},
		Data: inst.Encode(),
	}
}

// NewTransferCheckedInstruction builds a full TransferChecked instruction.
func NewTransferCheckedInstruction(source, mint, destination, authority types.Pubkey, amount uint64, decimals uint8) *types.Instruction {
	inst := TransferCheckedInstruction{Amount: amount, Decimals: decimals}
	return &types.Instruction{
		ProgramID: types.TokenProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: source, IsSigner: false, IsWritable: true},
			{Pubkey: mint, IsSigner: false, IsWritable: false},
			{Pubkey: destination, IsSigner: false, IsWritable: true},
			{Pubkey: authority, IsSigner: true, IsWritable: false},
		},
		Data: inst.Encode(),
	}
}

// NewMintToInstruction builds a full MintTo instruction.
func NewMintToInstruction(mint, destination, authority types.Pubkey, amount uint64) *types.Instruction {
	inst := MintToInstruction{Amount: amount}
	return &types.Instruction{
		ProgramID: types.TokenProgramID,
		Accounts: []types.AccountMeta{
			{Pubkey: mint, IsSigner: false, IsWritable: true},
			{Pubkey: destination, IsSigner: false, IsWritable: true},
			{Pubkey: authority, IsSigner: true, IsWritable: false},
		},
		Data: inst.Encode(),
	}
}
