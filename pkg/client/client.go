// Package client builds card program instructions for submission to the
// engine. It derives the stamp address and every associated holding
// account so callers only name wallets, mints, and amounts.
package client

import (
	"errors"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/programs/card"
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

var (
	// ErrMissingFeeWallet is returned when a fee is set without its wallet.
	ErrMissingFeeWallet = errors.New("fee set without a fee wallet")
)

// InitParams describes one card payment.
type InitParams struct {
	// Payer funds rent for provisioned accounts and receives the
	// network fee reimbursement. Must sign.
	Payer types.Pubkey

	// Wallet is the paying wallet, authority over the holding accounts.
	// Must sign.
	Wallet types.Pubkey

	// DstWallet receives the principal.
	DstWallet types.Pubkey

	// SrcMint denominates the network fee; DstMint denominates the
	// principal and the platform/referrer fees. Either may be the
	// native mint.
	SrcMint types.Pubkey
	DstMint types.Pubkey

	// Reference is the base58 payment reference the stamp address is
	// derived from.
	Reference string

	// Memo is an optional note recorded in the execution logs.
	Memo string

	Amount     uint64
	NetworkFee uint64

	// Optional fee legs. The wallet is required whenever the fee is set.
	PlatformFee    *uint64
	PlatformWallet types.Pubkey
	ReferrerFee    *uint64
	ReferrerWallet types.Pubkey
}

// NewInitInstruction builds the Init instruction for params, deriving
// the stamp address and all holding accounts.
func NewInitInstruction(params *InitParams) (*types.Instruction, error) {
	if params.PlatformFee != nil && params.PlatformWallet.IsZero() {
		return nil, fmt.Errorf("%w: platform", ErrMissingFeeWallet)
	}
	if params.ReferrerFee != nil && params.ReferrerWallet.IsZero() {
		return nil, fmt.Errorf("%w: referrer", ErrMissingFeeWallet)
	}

	stamp, bump, err := card.FindStampAddress(params.Reference)
	if err != nil {
		return nil, err
	}

	payerToken, err := holdingAccount(params.Payer, params.SrcMint)
	if err != nil {
		return nil, err
	}
	inToken, err := holdingAccount(params.Wallet, params.SrcMint)
	if err != nil {
		return nil, err
	}
	outToken, err := holdingAccount(params.Wallet, params.DstMint)
	if err != nil {
		return nil, err
	}
	dstToken, err := holdingAccount(params.DstWallet, params.DstMint)
	if err != nil {
		return nil, err
	}

	args := &card.InitArgs{
		Bump:        bump,
		Reference:   params.Reference,
		Memo:        params.Memo,
		NetworkFee:  params.NetworkFee,
		Amount:      params.Amount,
		PlatformFee: params.PlatformFee,
		ReferrerFee: params.ReferrerFee,
	}

	// The wallet accounts are writable: native legs debit and credit
	// them directly.
	metas := []types.AccountMeta{
		{Pubkey: params.Payer, IsSigner: true, IsWritable: true},
		{Pubkey: params.Wallet, IsSigner: true, IsWritable: true},
		{Pubkey: stamp, IsWritable: true},
		{Pubkey: params.SrcMint},
		{Pubkey: params.DstMint},
		{Pubkey: payerToken, IsWritable: true},
		{Pubkey: inToken, IsWritable: true},
		{Pubkey: outToken, IsWritable: true},
		{Pubkey: params.DstWallet, IsWritable: true},
		{Pubkey: dstToken, IsWritable: true},
		{Pubkey: types.SysvarRentID},
		{Pubkey: types.SystemProgramID},
	}

	if params.PlatformFee != nil {
		platformToken, err := holdingAccount(params.PlatformWallet, params.DstMint)
		if err != nil {
			return nil, err
		}
		metas = append(metas,
			types.AccountMeta{Pubkey: params.PlatformWallet, IsWritable: true},
			types.AccountMeta{Pubkey: platformToken, IsWritable: true},
		)
	}
	if params.ReferrerFee != nil {
		referrerToken, err := holdingAccount(params.ReferrerWallet, params.DstMint)
		if err != nil {
			return nil, err
		}
		metas = append(metas,
			types.AccountMeta{Pubkey: params.ReferrerWallet, IsWritable: true},
			types.AccountMeta{Pubkey: referrerToken, IsWritable: true},
		)
	}

	// Programs reached through CPI must be present in the account list.
	metas = append(metas,
		types.AccountMeta{Pubkey: types.TokenProgramID},
		types.AccountMeta{Pubkey: types.AssociatedTokenProgramID},
	)

	return &types.Instruction{
		ProgramID: types.CardProgramID,
		Accounts:  metas,
		Data:      args.Encode(),
	}, nil
}

// StampAddress derives the stamp address for a reference.
func StampAddress(reference string) (types.Pubkey, uint8, error) {
	return card.FindStampAddress(reference)
}

// holdingAccount derives the associated holding account for wallet/mint.
func holdingAccount(wallet, mint types.Pubkey) (types.Pubkey, error) {
	addr, _, err := runtime.DeriveAssociatedTokenAddress(wallet, mint, types.TokenProgramID)
	if err != nil {
		return types.Pubkey{}, err
	}
	return addr, nil
}
