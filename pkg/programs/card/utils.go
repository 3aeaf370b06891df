package card

import (
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/programs/ata"
	"github.com/GotokHQ/card-stamp/pkg/programs/system"
	"github.com/GotokHQ/card-stamp/pkg/programs/token"
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// accountExists reports whether an account is funded. A zero-lamport
// account is treated as nonexistent and eligible for provisioning.
func accountExists(info *runtime.AccountInfo) bool {
	return info.Lamports != nil && *info.Lamports > 0
}

// assertInitializedTokenAccount decodes a holding account and verifies it
// belongs to the expected wallet and the token program.
func assertInitializedTokenAccount(info *runtime.AccountInfo, wallet types.Pubkey) error {
	if info.Owner != types.TokenProgramID {
		return fmt.Errorf("%w: account %s owned by %s, expected token program",
			ErrIllegalOwner, info.Pubkey, info.Owner)
	}
	holding, err := token.DeserializeTokenAccount(info.Data)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUninitializedAccount, info.Pubkey)
	}
	if !holding.IsInitialized() {
		return fmt.Errorf("%w: %s", ErrUninitializedAccount, info.Pubkey)
	}
	if holding.Owner != wallet {
		return fmt.Errorf("%w: holding account %s owned by wallet %s, expected %s",
			ErrIllegalOwner, info.Pubkey, holding.Owner, wallet)
	}
	return nil
}

// ensureHoldingAccount provisions the associated holding account for
// wallet/mint when it does not exist yet, paying rent from payer. If the
// account already exists it is validated instead; a second run with a
// correctly-owned account is a no-op.
func ensureHoldingAccount(ctx *runtime.ExecutionContext, wallet, mint types.Pubkey,
	candidate *runtime.AccountInfo, payer types.Pubkey) error {

	if accountExists(candidate) {
		return assertInitializedTokenAccount(candidate, wallet)
	}
	ctx.Logf("creating holding account %s for wallet %s", candidate.Pubkey, wallet)
	return ctx.Invoke(ata.NewCreateInstruction(payer, candidate.Pubkey, wallet, mint))
}

// nativeTransfer moves lamports between system accounts via the system
// program.
func nativeTransfer(ctx *runtime.ExecutionContext, from, to types.Pubkey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	return ctx.Invoke(system.NewTransferInstruction(from, to, lamports))
}

// tokenTransfer performs a checked token transfer at the mint's declared
// decimal precision.
func tokenTransfer(ctx *runtime.ExecutionContext, source, dest, authority types.Pubkey,
	mintInfo *runtime.AccountInfo, amount uint64) error {

	if amount == 0 {
		return nil
	}
	mint, err := token.DeserializeMint(mintInfo.Data)
	if err != nil {
		return fmt.Errorf("%w: mint %s", ErrUninitializedAccount, mintInfo.Pubkey)
	}
	return ctx.Invoke(token.NewTransferCheckedInstruction(
		source, mintInfo.Pubkey, dest, authority, amount, mint.Decimals))
}
