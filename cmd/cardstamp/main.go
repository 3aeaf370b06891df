// cardstamp: a self-contained ledger runner for the card-stamp program.
//
// It executes card payments against a local accounts database (in-memory
// or BadgerDB), prints the execution logs and committed deltas, and can
// export or import account snapshots.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/GotokHQ/card-stamp/pkg/accounts"
	"github.com/GotokHQ/card-stamp/pkg/client"
	"github.com/GotokHQ/card-stamp/pkg/engine"
	"github.com/GotokHQ/card-stamp/pkg/programs/token"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags
var (
	configFile  = flag.String("config", "", "Path to JSON configuration file")
	dataDir     = flag.String("data-dir", "", "BadgerDB directory (empty = in-memory ledger)")
	snapshotOut = flag.String("snapshot-out", "", "Export the ledger to a snapshot file and exit")
	snapshotIn  = flag.String("snapshot-in", "", "Import a snapshot file before executing")

	payer       = flag.String("payer", "", "Payer pubkey (base58)")
	wallet      = flag.String("wallet", "", "Paying wallet pubkey (base58)")
	destWallet  = flag.String("dest-wallet", "", "Destination wallet pubkey (base58)")
	srcMint     = flag.String("src-mint", types.NativeMintID.String(), "Source mint (base58)")
	dstMint     = flag.String("dst-mint", types.NativeMintID.String(), "Destination mint (base58)")
	reference   = flag.String("reference", "", "Base58 payment reference")
	memoText    = flag.String("memo", "", "Optional memo")
	amount      = flag.Uint64("amount", 0, "Principal amount")
	networkFee  = flag.Uint64("network-fee", 0, "Network fee reimbursed to the payer")
	platformFee = flag.Uint64("platform-fee", 0, "Platform fee (0 = none)")
	platform    = flag.String("platform-wallet", "", "Platform wallet pubkey (base58)")
	referrerFee = flag.Uint64("referrer-fee", 0, "Referrer fee (0 = none)")
	referrer    = flag.String("referrer-wallet", "", "Referrer wallet pubkey (base58)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// Config represents the JSON configuration file structure.
type Config struct {
	DataDir    string `json:"data_dir"`
	SnapshotIn string `json:"snapshot_in"`
}

// loadConfig reads the JSON config file, if one was given.
func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("cardstamp %s (%s)\n", Version, GitCommit)
		return
	}

	if err := run(); err != nil {
		log.Fatalf("cardstamp: %v", err)
	}
}

func run() error {
	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *snapshotIn != "" {
		cfg.SnapshotIn = *snapshotIn
	}

	db, err := openLedger(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.SnapshotIn != "" {
		if err := accounts.ImportSnapshot(db, cfg.SnapshotIn); err != nil {
			return err
		}
		log.Printf("imported snapshot %s (%d accounts)", cfg.SnapshotIn, db.GetAccountsCount())
	}

	if *snapshotOut != "" {
		if err := accounts.ExportSnapshot(db, *snapshotOut); err != nil {
			return err
		}
		log.Printf("exported %d accounts to %s", db.GetAccountsCount(), *snapshotOut)
		return nil
	}

	if *reference == "" {
		return fmt.Errorf("missing -reference")
	}

	params, err := buildParams()
	if err != nil {
		return err
	}

	instruction, err := client.NewInitInstruction(params)
	if err != nil {
		return err
	}

	executor := engine.NewExecutor(db, engine.DefaultRegistry())
	result := executor.Execute(instruction)

	for _, line := range result.Logs {
		log.Printf("log: %s", line)
	}
	if !result.Success {
		return fmt.Errorf("execution failed: %w", result.Err)
	}

	stamp, _, _ := client.StampAddress(params.Reference)
	log.Printf("stamp %s registered, %d accounts changed, delta hash %s",
		stamp, len(result.Deltas), result.DeltaHash)
	for _, delta := range result.Deltas {
		describeDelta(db, delta)
	}
	return nil
}

// openLedger opens the configured ledger backend.
func openLedger(dir string) (accounts.AccountsDB, error) {
	if dir == "" {
		log.Printf("using in-memory ledger")
		return accounts.NewMemoryDB(), nil
	}
	log.Printf("using badger ledger at %s", dir)
	return accounts.NewBadgerDB(dir)
}

// buildParams assembles InitParams from the command line.
func buildParams() (*client.InitParams, error) {
	params := &client.InitParams{
		Reference:  *reference,
		Memo:       *memoText,
		Amount:     *amount,
		NetworkFee: *networkFee,
	}

	var err error
	if params.Payer, err = types.PubkeyFromBase58(*payer); err != nil {
		return nil, fmt.Errorf("invalid -payer: %w", err)
	}
	if params.Wallet, err = types.PubkeyFromBase58(*wallet); err != nil {
		return nil, fmt.Errorf("invalid -wallet: %w", err)
	}
	if params.DstWallet, err = types.PubkeyFromBase58(*destWallet); err != nil {
		return nil, fmt.Errorf("invalid -dest-wallet: %w", err)
	}
	if params.SrcMint, err = types.PubkeyFromBase58(*srcMint); err != nil {
		return nil, fmt.Errorf("invalid -src-mint: %w", err)
	}
	if params.DstMint, err = types.PubkeyFromBase58(*dstMint); err != nil {
		return nil, fmt.Errorf("invalid -dst-mint: %w", err)
	}

	if *platformFee > 0 {
		fee := *platformFee
		params.PlatformFee = &fee
		if params.PlatformWallet, err = types.PubkeyFromBase58(*platform); err != nil {
			return nil, fmt.Errorf("invalid -platform-wallet: %w", err)
		}
	}
	if *referrerFee > 0 {
		fee := *referrerFee
		params.ReferrerFee = &fee
		if params.ReferrerWallet, err = types.PubkeyFromBase58(*referrer); err != nil {
			return nil, fmt.Errorf("invalid -referrer-wallet: %w", err)
		}
	}
	return params, nil
}

// describeDelta prints one committed account change.
func describeDelta(db accounts.AccountsDB, delta types.AccountDelta) {
	switch {
	case delta.NewAccount == nil:
		log.Printf("  %s deleted", delta.Pubkey)
	case delta.IsCreation():
		log.Printf("  %s created: %d lamports, %d bytes, owner %s",
			delta.Pubkey, delta.NewAccount.Lamports, len(delta.NewAccount.Data), delta.NewAccount.Owner)
	default:
		log.Printf("  %s: %d -> %d lamports%s",
			delta.Pubkey, delta.OldAccount.Lamports, delta.NewAccount.Lamports, describeTokenBalance(delta))
	}
}

// describeTokenBalance annotates a delta with its token balance when the
// account is a token holding account.
func describeTokenBalance(delta types.AccountDelta) string {
	if delta.NewAccount.Owner != types.TokenProgramID {
		return ""
	}
	holding, err := token.DeserializeTokenAccount(delta.NewAccount.Data)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(", token balance %d", holding.Amount)
}
