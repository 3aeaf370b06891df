package card

import (
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/runtime"
)

// initAccounts is the resolved account context of the Init instruction.
// The positions are part of the wire contract and mirror the order in
// which the client lays them out (see client.NewInitInstruction).
type initAccounts struct {
	Payer      *runtime.AccountInfo // signer, writable; funds rent and network fee refund target
	Wallet     *runtime.AccountInfo // signer; authority over the holding accounts
	Stamp      *runtime.AccountInfo // writable; receipt account at the derived address
	SrcMint    *runtime.AccountInfo // source asset
	DstMint    *runtime.AccountInfo // destination asset
	PayerToken *runtime.AccountInfo // writable; payer's holding account for the source asset
	InToken    *runtime.AccountInfo // writable; wallet's inbound holding account (source asset)
	OutToken   *runtime.AccountInfo // writable; wallet's outbound holding account (destination asset)
	DstWallet  *runtime.AccountInfo // writable; destination wallet
	DstToken   *runtime.AccountInfo // writable; destination holding account
	Rent       *runtime.AccountInfo // rent sysvar
	System     *runtime.AccountInfo // system program

	// Present only when the corresponding fee is set in the arguments.
	PlatformWallet *runtime.AccountInfo
	PlatformToken  *runtime.AccountInfo
	ReferrerWallet *runtime.AccountInfo
	ReferrerToken  *runtime.AccountInfo
}

// accountCursor walks the instruction's account list in order.
type accountCursor struct {
	ctx  *runtime.ExecutionContext
	next int
}

func (c *accountCursor) take() (*runtime.AccountInfo, error) {
	if c.next >= c.ctx.AccountCount() {
		return nil, fmt.Errorf("%w: expected account at index %d", ErrNotEnoughAccounts, c.next)
	}
	info, err := c.ctx.GetAccountByIndex(c.next)
	if err != nil {
		return nil, err
	}
	c.next++
	return info, nil
}

// resolveInitAccounts extracts the fixed twelve accounts, then the optional
// platform and referrer pairs according to the decoded arguments.
func resolveInitAccounts(ctx *runtime.ExecutionContext, args *InitArgs) (*initAccounts, error) {
	cur := &accountCursor{ctx: ctx}
	acc := &initAccounts{}

	fixed := []**runtime.AccountInfo{
		&acc.Payer, &acc.Wallet, &acc.Stamp,
		&acc.SrcMint, &acc.DstMint,
		&acc.PayerToken, &acc.InToken, &acc.OutToken,
		&acc.DstWallet, &acc.DstToken,
		&acc.Rent, &acc.System,
	}
	for _, slot := range fixed {
		info, err := cur.take()
		if err != nil {
			return nil, err
		}
		*slot = info
	}

	if args.PlatformFee != nil {
		var err error
		if acc.PlatformWallet, err = cur.take(); err != nil {
			return nil, err
		}
		if acc.PlatformToken, err = cur.take(); err != nil {
			return nil, err
		}
	}
	if args.ReferrerFee != nil {
		var err error
		if acc.ReferrerWallet, err = cur.take(); err != nil {
			return nil, err
		}
		if acc.ReferrerToken, err = cur.take(); err != nil {
			return nil, err
		}
	}

	if !acc.Payer.IsSigner {
		return nil, fmt.Errorf("%w: payer %s", ErrMissingSignature, acc.Payer.Pubkey)
	}
	if !acc.Wallet.IsSigner {
		return nil, fmt.Errorf("%w: wallet %s", ErrMissingSignature, acc.Wallet.Pubkey)
	}
	return acc, nil
}
