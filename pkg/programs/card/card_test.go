package card_test

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/GotokHQ/card-stamp/pkg/accounts"
	"github.com/GotokHQ/card-stamp/pkg/client"
	"github.com/GotokHQ/card-stamp/pkg/engine"
	"github.com/GotokHQ/card-stamp/pkg/programs/card"
	"github.com/GotokHQ/card-stamp/pkg/programs/token"
	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Helper function to create test pubkeys
func testPubkey(seed string) types.Pubkey {
	hash := sha256.Sum256([]byte(seed))
	var pk types.Pubkey
	copy(pk[:], hash[:])
	return pk
}

// newTestLedger creates an in-memory ledger with the full program set.
func newTestLedger() (*accounts.MemoryDB, *engine.Executor) {
	db := accounts.NewMemoryDB()
	return db, engine.NewExecutor(db, engine.DefaultRegistry())
}

func fundSystemAccount(t *testing.T, db accounts.AccountsDB, pubkey types.Pubkey, lamports types.Lamports) {
	t.Helper()
	if err := db.SetAccount(pubkey, types.NewAccount(lamports, types.SystemProgramID)); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}
}

// createMint stores an initialized mint with the given decimals.
func createMint(t *testing.T, db accounts.AccountsDB, mint types.Pubkey, decimals uint8) {
	t.Helper()
	authority := testPubkey("mint_authority")
	data := token.NewMint(decimals, &authority, nil).Serialize()
	account := types.NewAccountWithData(types.RentExemptMinimum(uint64(len(data))), data, types.TokenProgramID)
	if err := db.SetAccount(mint, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}
}

// createHolding stores an initialized holding account for wallet/mint at
// the associated address and returns that address.
func createHolding(t *testing.T, db accounts.AccountsDB, wallet, mint types.Pubkey, amount uint64) types.Pubkey {
	t.Helper()
	addr, _, err := runtime.DeriveAssociatedTokenAddress(wallet, mint, types.TokenProgramID)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress failed: %v", err)
	}
	holding := token.NewTokenAccount(mint, wallet)
	holding.Amount = amount
	data := holding.Serialize()
	account := types.NewAccountWithData(types.RentExemptMinimum(uint64(len(data))), data, types.TokenProgramID)
	if err := db.SetAccount(addr, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}
	return addr
}

func lamportsOf(t *testing.T, db accounts.AccountsDB, pubkey types.Pubkey) types.Lamports {
	t.Helper()
	account, err := db.GetAccount(pubkey)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account == nil {
		return 0
	}
	return account.Lamports
}

func tokenBalance(t *testing.T, db accounts.AccountsDB, pubkey types.Pubkey) uint64 {
	t.Helper()
	account, err := db.GetAccount(pubkey)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account == nil {
		t.Fatalf("holding account %s does not exist", pubkey)
	}
	holding, err := token.DeserializeTokenAccount(account.Data)
	if err != nil {
		t.Fatalf("DeserializeTokenAccount failed: %v", err)
	}
	return holding.Amount
}

// nativeParams returns InitParams for a fully native payment, per the
// reference scenario: amount 1000, network fee 10, no extra fees.
func nativeParams() *client.InitParams {
	return &client.InitParams{
		Payer:      testPubkey("payer"),
		Wallet:     testPubkey("wallet"),
		DstWallet:  testPubkey("dest_wallet"),
		SrcMint:    types.NativeMintID,
		DstMint:    types.NativeMintID,
		Reference:  "Ref1",
		Amount:     1000,
		NetworkFee: 10,
	}
}

func TestInit_NativePayment(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v\nlogs:\n%s", result.Err, strings.Join(result.Logs, "\n"))
	}

	// Exactly one native transfer of 1000 to the destination wallet.
	if got := lamportsOf(t, db, params.DstWallet); got != 1000 {
		t.Errorf("destination wallet: expected 1000 lamports, got %d", got)
	}

	// One native transfer of 10 back to the payer, minus the stamp rent.
	stampRent := types.RentExemptMinimum(card.StampAccountSize)
	wantPayer := 10_000_000_000 - stampRent + 10
	if got := lamportsOf(t, db, params.Payer); got != wantPayer {
		t.Errorf("payer: expected %d lamports, got %d", wantPayer, got)
	}

	// Wallet paid amount + network fee.
	if got := lamportsOf(t, db, params.Wallet); got != 1_000_000_000-1000-10 {
		t.Errorf("wallet: expected %d lamports, got %d", 1_000_000_000-1000-10, got)
	}

	// Receipt created at the derived address, program-owned, initialized.
	stamp, _, err := client.StampAddress(params.Reference)
	if err != nil {
		t.Fatalf("StampAddress failed: %v", err)
	}
	stampAccount, err := db.GetAccount(stamp)
	if err != nil || stampAccount == nil {
		t.Fatalf("stamp account missing: %v", err)
	}
	if stampAccount.Owner != types.CardProgramID {
		t.Errorf("stamp owner: expected card program, got %s", stampAccount.Owner)
	}
	if stampAccount.Lamports != stampRent {
		t.Errorf("stamp rent: expected %d, got %d", stampRent, stampAccount.Lamports)
	}
	record, err := card.UnpackStamp(stampAccount.Data)
	if err != nil {
		t.Fatalf("UnpackStamp failed: %v", err)
	}
	if !record.IsInitialized {
		t.Error("stamp is not initialized")
	}
}

func TestInit_NativePaymentWithFees(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()
	platformFee := uint64(50)
	referrerFee := uint64(25)
	params.PlatformFee = &platformFee
	params.PlatformWallet = testPubkey("platform")
	params.ReferrerFee = &referrerFee
	params.ReferrerWallet = testPubkey("referrer")

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	before := lamportsOf(t, db, params.Payer) + lamportsOf(t, db, params.Wallet)

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v\nlogs:\n%s", result.Err, strings.Join(result.Logs, "\n"))
	}

	if got := lamportsOf(t, db, params.PlatformWallet); got != 50 {
		t.Errorf("platform wallet: expected 50 lamports, got %d", got)
	}
	if got := lamportsOf(t, db, params.ReferrerWallet); got != 25 {
		t.Errorf("referrer wallet: expected 25 lamports, got %d", got)
	}

	// The wallet is debited amount + network_fee + platform_fee + referrer_fee.
	wantWallet := types.Lamports(1_000_000_000 - 1000 - 10 - 50 - 25)
	if got := lamportsOf(t, db, params.Wallet); got != wantWallet {
		t.Errorf("wallet: expected %d lamports, got %d", wantWallet, got)
	}

	// Lamports are conserved across all touched accounts.
	stamp, _, _ := client.StampAddress(params.Reference)
	after := lamportsOf(t, db, params.Payer) + lamportsOf(t, db, params.Wallet) +
		lamportsOf(t, db, params.DstWallet) + lamportsOf(t, db, params.PlatformWallet) +
		lamportsOf(t, db, params.ReferrerWallet) + lamportsOf(t, db, stamp)
	if before != after {
		t.Errorf("lamports not conserved: before %d, after %d", before, after)
	}
}

func TestInit_TokenPaymentCreatesDestinationHolding(t *testing.T) {
	db, executor := newTestLedger()
	usdc := testPubkey("usdc_mint")

	params := nativeParams()
	params.DstMint = usdc

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)
	createMint(t, db, usdc, 6)
	outToken := createHolding(t, db, params.Wallet, usdc, 5000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	dstToken, _, err := runtime.DeriveAssociatedTokenAddress(params.DstWallet, usdc, types.TokenProgramID)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress failed: %v", err)
	}
	if db.HasAccount(dstToken) {
		t.Fatal("destination holding account must not exist before the payment")
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v\nlogs:\n%s", result.Err, strings.Join(result.Logs, "\n"))
	}

	// The holding account was created for the destination wallet and
	// received the 1000-unit token transfer.
	dstAccount, err := db.GetAccount(dstToken)
	if err != nil || dstAccount == nil {
		t.Fatalf("destination holding account missing: %v", err)
	}
	if dstAccount.Owner != types.TokenProgramID {
		t.Errorf("destination holding owner: expected token program, got %s", dstAccount.Owner)
	}
	holding, err := token.DeserializeTokenAccount(dstAccount.Data)
	if err != nil {
		t.Fatalf("DeserializeTokenAccount failed: %v", err)
	}
	if holding.Owner != params.DstWallet {
		t.Errorf("destination holding wallet: expected %s, got %s", params.DstWallet, holding.Owner)
	}
	if holding.Amount != 1000 {
		t.Errorf("destination holding balance: expected 1000, got %d", holding.Amount)
	}
	if got := tokenBalance(t, db, outToken); got != 4000 {
		t.Errorf("outbound holding balance: expected 4000, got %d", got)
	}

	// The network fee still moves natively, keyed off the source asset.
	if got := lamportsOf(t, db, params.Wallet); got != 1_000_000_000-10 {
		t.Errorf("wallet: expected %d lamports, got %d", 1_000_000_000-10, got)
	}
}

func TestInit_TokenNetworkFee(t *testing.T) {
	db, executor := newTestLedger()
	usdc := testPubkey("usdc_mint")

	params := nativeParams()
	params.SrcMint = usdc
	params.NetworkFee = 7

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)
	createMint(t, db, usdc, 6)
	inToken := createHolding(t, db, params.Wallet, usdc, 300)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v\nlogs:\n%s", result.Err, strings.Join(result.Logs, "\n"))
	}

	// The payer's holding account for the source asset was provisioned
	// and reimbursed from the wallet's inbound holding account.
	payerToken, _, err := runtime.DeriveAssociatedTokenAddress(params.Payer, usdc, types.TokenProgramID)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress failed: %v", err)
	}
	if got := tokenBalance(t, db, payerToken); got != 7 {
		t.Errorf("payer holding balance: expected 7, got %d", got)
	}
	if got := tokenBalance(t, db, inToken); got != 293 {
		t.Errorf("inbound holding balance: expected 293, got %d", got)
	}

	// Principal is still native.
	if got := lamportsOf(t, db, params.DstWallet); got != 1000 {
		t.Errorf("destination wallet: expected 1000 lamports, got %d", got)
	}
}

func TestInit_SecondCallAlreadyInitialized(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	if result := executor.Execute(instruction); !result.Success {
		t.Fatalf("first execution failed: %v", result.Err)
	}

	walletBefore := lamportsOf(t, db, params.Wallet)
	payerBefore := lamportsOf(t, db, params.Payer)
	destBefore := lamportsOf(t, db, params.DstWallet)

	result := executor.Execute(instruction)
	if result.Success {
		t.Fatal("second execution should have failed")
	}
	if !errors.Is(result.Err, card.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", result.Err)
	}

	// No transfers are re-applied by the failed attempt.
	if got := lamportsOf(t, db, params.Wallet); got != walletBefore {
		t.Errorf("wallet balance changed: %d -> %d", walletBefore, got)
	}
	if got := lamportsOf(t, db, params.Payer); got != payerBefore {
		t.Errorf("payer balance changed: %d -> %d", payerBefore, got)
	}
	if got := lamportsOf(t, db, params.DstWallet); got != destBefore {
		t.Errorf("destination balance changed: %d -> %d", destBefore, got)
	}
	if len(result.Deltas) != 0 {
		t.Errorf("failed execution committed %d deltas", len(result.Deltas))
	}
}

func TestInit_InvalidReference(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	// "0" and "O" are not in the base58 alphabet.
	args := &card.InitArgs{
		Reference:  "0O",
		Amount:     params.Amount,
		NetworkFee: params.NetworkFee,
	}
	instruction.Data = args.Encode()

	walletBefore := lamportsOf(t, db, params.Wallet)

	result := executor.Execute(instruction)
	if result.Success {
		t.Fatal("execution should have failed")
	}
	if !errors.Is(result.Err, card.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", result.Err)
	}
	if got := lamportsOf(t, db, params.Wallet); got != walletBefore {
		t.Errorf("wallet balance changed on failed call: %d -> %d", walletBefore, got)
	}
}

func TestInit_ProvisioningIdempotence(t *testing.T) {
	db, executor := newTestLedger()
	usdc := testPubkey("usdc_mint")

	params := nativeParams()
	params.DstMint = usdc

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)
	createMint(t, db, usdc, 6)
	createHolding(t, db, params.Wallet, usdc, 5000)
	dstToken := createHolding(t, db, params.DstWallet, usdc, 111)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v\nlogs:\n%s", result.Err, strings.Join(result.Logs, "\n"))
	}

	// The pre-existing holding account was reused, not recreated.
	if delta := result.Delta(dstToken); delta == nil || delta.IsCreation() {
		t.Error("pre-existing holding account should be modified, not created")
	}
	if got := tokenBalance(t, db, dstToken); got != 1111 {
		t.Errorf("destination holding balance: expected 1111, got %d", got)
	}
}

func TestInit_WrongOwnerHoldingAccount(t *testing.T) {
	db, executor := newTestLedger()
	usdc := testPubkey("usdc_mint")

	params := nativeParams()
	params.DstMint = usdc

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)
	createMint(t, db, usdc, 6)
	createHolding(t, db, params.Wallet, usdc, 5000)

	// A holding account sits at the destination's associated address but
	// records a different wallet as its owner.
	dstToken, _, err := runtime.DeriveAssociatedTokenAddress(params.DstWallet, usdc, types.TokenProgramID)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress failed: %v", err)
	}
	intruder := token.NewTokenAccount(usdc, testPubkey("intruder"))
	data := intruder.Serialize()
	if err := db.SetAccount(dstToken, types.NewAccountWithData(
		types.RentExemptMinimum(uint64(len(data))), data, types.TokenProgramID)); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if result.Success {
		t.Fatal("execution should have failed")
	}
	if !errors.Is(result.Err, card.ErrIllegalOwner) {
		t.Errorf("expected ErrIllegalOwner, got %v", result.Err)
	}
}

func TestInit_MissingWalletSignature(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}
	instruction.Accounts[1].IsSigner = false // wallet

	result := executor.Execute(instruction)
	if result.Success {
		t.Fatal("execution should have failed")
	}
	if !errors.Is(result.Err, card.ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", result.Err)
	}
}

func TestInit_NotEnoughAccounts(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}
	instruction.Accounts = instruction.Accounts[:5]

	result := executor.Execute(instruction)
	if result.Success {
		t.Fatal("execution should have failed")
	}
	if !errors.Is(result.Err, card.ErrNotEnoughAccounts) {
		t.Errorf("expected ErrNotEnoughAccounts, got %v", result.Err)
	}
}

func TestInit_MemoInLogs(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()
	params.Memo = "coffee order 42"

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v", result.Err)
	}

	found := false
	for _, line := range result.Logs {
		if strings.Contains(line, "coffee order 42") {
			found = true
		}
	}
	if !found {
		t.Errorf("memo not found in logs:\n%s", strings.Join(result.Logs, "\n"))
	}
}

func TestInit_MemoIsOpaque(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()
	params.Memo = "\xff\xfe" // not UTF-8; carried for off-chain indexing, never validated

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v", result.Err)
	}

	stamp, _, err := card.FindStampAddress(params.Reference)
	if err != nil {
		t.Fatalf("FindStampAddress failed: %v", err)
	}
	account, err := db.GetAccount(stamp)
	if err != nil {
		t.Fatalf("stamp not registered: %v", err)
	}
	if len(account.Data) != 1 || account.Data[0] != 1 {
		t.Errorf("stamp not initialized: %v", account.Data)
	}
}

func TestInit_ZeroAmountLegsAreNoOps(t *testing.T) {
	db, executor := newTestLedger()
	params := nativeParams()
	params.Amount = 0
	params.NetworkFee = 0

	fundSystemAccount(t, db, params.Payer, 10_000_000_000)
	fundSystemAccount(t, db, params.Wallet, 1_000_000_000)

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		t.Fatalf("NewInitInstruction failed: %v", err)
	}

	result := executor.Execute(instruction)
	if !result.Success {
		t.Fatalf("execution failed: %v\nlogs:\n%s", result.Err, strings.Join(result.Logs, "\n"))
	}

	// Nothing moved, but the receipt still registered.
	if got := lamportsOf(t, db, params.Wallet); got != 1_000_000_000 {
		t.Errorf("wallet: expected untouched balance, got %d", got)
	}
	stamp, _, _ := client.StampAddress(params.Reference)
	if !db.HasAccount(stamp) {
		t.Error("stamp account missing")
	}
}
