package card

import (
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/programs/system"
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// processInit executes the Init instruction: distributes the optional
// platform and referrer fees, pays the principal to the destination,
// reimburses the network fee to the payer, then registers the stamp
// receipt at the derived address. Any failing step aborts the whole
// invocation; the engine discards all effects.
func processInit(ctx *runtime.ExecutionContext, args *InitArgs) error {
	reference, err := DecodeReference(args.Reference)
	if err != nil {
		return err
	}

	acc, err := resolveInitAccounts(ctx, args)
	if err != nil {
		return err
	}

	if args.PlatformFee != nil {
		ctx.Logf("paying platform fee %d", *args.PlatformFee)
		if err := payDestinationLeg(ctx, acc, acc.PlatformWallet, acc.PlatformToken, *args.PlatformFee); err != nil {
			return fmt.Errorf("platform fee: %w", err)
		}
	}

	if args.ReferrerFee != nil {
		ctx.Logf("paying referrer fee %d", *args.ReferrerFee)
		if err := payDestinationLeg(ctx, acc, acc.ReferrerWallet, acc.ReferrerToken, *args.ReferrerFee); err != nil {
			return fmt.Errorf("referrer fee: %w", err)
		}
	}

	ctx.Logf("paying principal %d", args.Amount)
	if err := payDestinationLeg(ctx, acc, acc.DstWallet, acc.DstToken, args.Amount); err != nil {
		return fmt.Errorf("principal: %w", err)
	}

	ctx.Logf("paying network fee %d", args.NetworkFee)
	if err := payNetworkFee(ctx, acc, args.NetworkFee); err != nil {
		return fmt.Errorf("network fee: %w", err)
	}

	if err := registerStamp(ctx, acc, reference, args.Bump); err != nil {
		return err
	}

	// The memo is opaque: logged verbatim for off-chain indexing, never
	// validated. Clients that want it on the memo contract attach a
	// separate instruction.
	if args.Memo != "" {
		ctx.Logf("memo: %s", args.Memo)
	}
	return nil
}

// payDestinationLeg pays amount to a destination wallet, choosing the
// native or token path off the destination asset. The token path
// provisions the destination holding account first.
func payDestinationLeg(ctx *runtime.ExecutionContext, acc *initAccounts,
	destWallet, destToken *runtime.AccountInfo, amount uint64) error {

	if acc.DstMint.Pubkey.IsNativeMint() {
		return nativeTransfer(ctx, acc.Wallet.Pubkey, destWallet.Pubkey, amount)
	}
	if err := ensureHoldingAccount(ctx, destWallet.Pubkey, acc.DstMint.Pubkey, destToken, acc.Payer.Pubkey); err != nil {
		return err
	}
	return tokenTransfer(ctx, acc.OutToken.Pubkey, destToken.Pubkey, acc.Wallet.Pubkey, acc.DstMint, amount)
}

// payNetworkFee reimburses the payer, keyed off the source asset. The
// token path draws from the wallet's inbound holding account and lands
// in the payer's holding account for the source asset.
func payNetworkFee(ctx *runtime.ExecutionContext, acc *initAccounts, fee uint64) error {
	if acc.SrcMint.Pubkey.IsNativeMint() {
		return nativeTransfer(ctx, acc.Wallet.Pubkey, acc.Payer.Pubkey, fee)
	}
	if err := ensureHoldingAccount(ctx, acc.Payer.Pubkey, acc.SrcMint.Pubkey, acc.PayerToken, acc.Payer.Pubkey); err != nil {
		return err
	}
	return tokenTransfer(ctx, acc.InToken.Pubkey, acc.PayerToken.Pubkey, acc.Wallet.Pubkey, acc.SrcMint, fee)
}

// registerStamp creates the one-time receipt at the derived stamp
// address and marks it initialized. The existence probe runs before any
// allocation so a replayed reference fails fast.
func registerStamp(ctx *runtime.ExecutionContext, acc *initAccounts, reference []byte, bump uint8) error {
	stamp := acc.Stamp
	if accountExists(stamp) || len(stamp.Data) > 0 {
		return fmt.Errorf("%w: stamp %s", ErrAlreadyInitialized, stamp.Pubkey)
	}

	seeds := StampSeeds(reference, bump)
	rent := ctx.RentExemptMinimum(StampAccountSize)

	if err := ctx.Invoke(system.NewTransferInstruction(acc.Payer.Pubkey, stamp.Pubkey, rent)); err != nil {
		return fmt.Errorf("fund stamp: %w", err)
	}
	if err := ctx.InvokeSigned(system.NewAllocateInstruction(stamp.Pubkey, StampAccountSize), [][][]byte{seeds}); err != nil {
		return fmt.Errorf("allocate stamp: %w", err)
	}
	if err := ctx.InvokeSigned(system.NewAssignInstruction(stamp.Pubkey, types.CardProgramID), [][][]byte{seeds}); err != nil {
		return fmt.Errorf("assign stamp: %w", err)
	}

	record, err := UnpackStamp(stamp.Data)
	if err != nil {
		return err
	}
	if record.IsInitialized {
		return fmt.Errorf("%w: stamp %s", ErrAlreadyInitialized, stamp.Pubkey)
	}
	record.IsInitialized = true
	if err := record.Pack(stamp.Data); err != nil {
		return err
	}
	ctx.Logf("stamp %s registered", stamp.Pubkey)
	return nil
}
