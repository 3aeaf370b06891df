package accounts

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"path/filepath"
	"testing"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Helper function to create test pubkeys
func testPubkey(seed string) types.Pubkey {
	hash := sha256.Sum256([]byte(seed))
	var pk types.Pubkey
	copy(pk[:], hash[:])
	return pk
}

// Helper function to create test accounts
func testAccount(lamports types.Lamports, data []byte, owner types.Pubkey) *types.Account {
	return &types.Account{
		Lamports: lamports,
		Data:     data,
		Owner:    owner,
	}
}

func TestMemoryDB_SetAndGetAccount(t *testing.T) {
	db := NewMemoryDB()
	pubkey := testPubkey("test_account")
	account := testAccount(1_000_000_000, []byte("test_data"), types.SystemProgramID)

	if err := db.SetAccount(pubkey, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}

	retrieved, err := db.GetAccount(pubkey)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("GetAccount returned nil for existing account")
	}
	if retrieved.Lamports != account.Lamports {
		t.Errorf("expected lamports %d, got %d", account.Lamports, retrieved.Lamports)
	}
	if !bytes.Equal(retrieved.Data, account.Data) {
		t.Errorf("expected data %v, got %v", account.Data, retrieved.Data)
	}
}

func TestMemoryDB_GetAccount_NotFound(t *testing.T) {
	db := NewMemoryDB()

	account, err := db.GetAccount(testPubkey("nonexistent"))
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account != nil {
		t.Error("expected nil for nonexistent account")
	}
}

func TestMemoryDB_CloneIsolation(t *testing.T) {
	db := NewMemoryDB()
	pubkey := testPubkey("test_account")
	account := testAccount(100, []byte{1, 2, 3}, types.SystemProgramID)

	if err := db.SetAccount(pubkey, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}

	// Mutating the original or the retrieved copy must not affect the store.
	account.Data[0] = 99
	retrieved, _ := db.GetAccount(pubkey)
	retrieved.Data[1] = 99

	fresh, _ := db.GetAccount(pubkey)
	if !bytes.Equal(fresh.Data, []byte{1, 2, 3}) {
		t.Errorf("stored data was mutated: %v", fresh.Data)
	}
}

func TestMemoryDB_DeleteAndCount(t *testing.T) {
	db := NewMemoryDB()
	pubkey := testPubkey("test_account")

	if err := db.SetAccount(pubkey, testAccount(1, nil, types.SystemProgramID)); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}
	if db.GetAccountsCount() != 1 {
		t.Errorf("expected count 1, got %d", db.GetAccountsCount())
	}
	if !db.HasAccount(pubkey) {
		t.Error("HasAccount returned false for existing account")
	}

	if err := db.DeleteAccount(pubkey); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if db.HasAccount(pubkey) {
		t.Error("HasAccount returned true after delete")
	}
	if db.GetAccountsCount() != 0 {
		t.Errorf("expected count 0, got %d", db.GetAccountsCount())
	}
}

func TestSerialization_RoundTrip(t *testing.T) {
	account := &types.Account{
		Lamports:   12345,
		Data:       []byte("account payload"),
		Owner:      testPubkey("owner"),
		Executable: true,
		RentEpoch:  7,
	}

	serialized, err := SerializeAccount(account)
	if err != nil {
		t.Fatalf("SerializeAccount failed: %v", err)
	}

	restored, err := DeserializeAccount(serialized)
	if err != nil {
		t.Fatalf("DeserializeAccount failed: %v", err)
	}

	if restored.Lamports != account.Lamports {
		t.Errorf("lamports: expected %d, got %d", account.Lamports, restored.Lamports)
	}
	if !bytes.Equal(restored.Data, account.Data) {
		t.Errorf("data: expected %v, got %v", account.Data, restored.Data)
	}
	if restored.Owner != account.Owner {
		t.Errorf("owner: expected %s, got %s", account.Owner, restored.Owner)
	}
	if restored.Executable != account.Executable {
		t.Error("executable flag lost")
	}
	if restored.RentEpoch != account.RentEpoch {
		t.Errorf("rent epoch: expected %d, got %d", account.RentEpoch, restored.RentEpoch)
	}
}

func TestSerialization_Truncated(t *testing.T) {
	account := testAccount(1, []byte("data"), types.SystemProgramID)
	serialized, err := SerializeAccount(account)
	if err != nil {
		t.Fatalf("SerializeAccount failed: %v", err)
	}

	if _, err := DeserializeAccount(serialized[:10]); !errors.Is(err, ErrInvalidAccountData) {
		t.Errorf("expected ErrInvalidAccountData, got %v", err)
	}
	if _, err := DeserializeAccount(serialized[:len(serialized)-1]); !errors.Is(err, ErrInvalidAccountData) {
		t.Errorf("expected ErrInvalidAccountData, got %v", err)
	}
}

func TestBadgerDB_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	db, err := NewBadgerDB(filepath.Join(dir, "accounts"))
	if err != nil {
		t.Fatalf("NewBadgerDB failed: %v", err)
	}
	defer db.Close()

	pubkey := testPubkey("badger_account")
	account := testAccount(777, []byte("persistent"), types.TokenProgramID)

	if err := db.SetAccount(pubkey, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}
	if db.GetAccountsCount() != 1 {
		t.Errorf("expected count 1, got %d", db.GetAccountsCount())
	}

	retrieved, err := db.GetAccount(pubkey)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if retrieved == nil || retrieved.Lamports != 777 || !bytes.Equal(retrieved.Data, account.Data) {
		t.Errorf("retrieved account mismatch: %+v", retrieved)
	}

	if err := db.DeleteAccount(pubkey); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if db.HasAccount(pubkey) {
		t.Error("account still present after delete")
	}
}

func TestSnapshot_ExportImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.snapshot")

	src := NewMemoryDB()
	for i := 0; i < 20; i++ {
		pubkey := testPubkey(string(rune('a' + i)))
		account := testAccount(types.Lamports(i+1), []byte{byte(i)}, types.SystemProgramID)
		if err := src.SetAccount(pubkey, account); err != nil {
			t.Fatalf("SetAccount failed: %v", err)
		}
	}

	if err := ExportSnapshot(src, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	dst := NewMemoryDB()
	if err := ImportSnapshot(dst, path); err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}

	if dst.GetAccountsCount() != src.GetAccountsCount() {
		t.Fatalf("expected %d accounts, got %d", src.GetAccountsCount(), dst.GetAccountsCount())
	}

	err := src.ForEachAccount(func(pubkey types.Pubkey, account *types.Account) error {
		restored, err := dst.GetAccount(pubkey)
		if err != nil {
			return err
		}
		if restored == nil {
			t.Errorf("account %s missing after import", pubkey)
			return nil
		}
		if restored.Lamports != account.Lamports || !bytes.Equal(restored.Data, account.Data) {
			t.Errorf("account %s mismatch after import", pubkey)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachAccount failed: %v", err)
	}
}

func TestSnapshot_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.snapshot")

	db := NewMemoryDB()
	if err := ImportSnapshot(db, path); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestComputeDeltaHash_OrderIndependent(t *testing.T) {
	deltaA := types.AccountDelta{
		Pubkey:     testPubkey("a"),
		NewAccount: testAccount(1, nil, types.SystemProgramID),
	}
	deltaB := types.AccountDelta{
		Pubkey:     testPubkey("b"),
		NewAccount: testAccount(2, nil, types.SystemProgramID),
	}

	first := ComputeDeltaHash([]types.AccountDelta{deltaA, deltaB})
	second := ComputeDeltaHash([]types.AccountDelta{deltaB, deltaA})

	if first != second {
		t.Errorf("hash depends on delta order: %s vs %s", first, second)
	}
	if first.IsZero() {
		t.Error("hash of non-empty deltas is zero")
	}
	if !ComputeDeltaHash(nil).IsZero() {
		t.Error("hash of empty deltas is not zero")
	}
}

func TestComputeDeltaHash_SensitiveToState(t *testing.T) {
	delta := types.AccountDelta{
		Pubkey:     testPubkey("a"),
		NewAccount: testAccount(1, nil, types.SystemProgramID),
	}
	changed := delta
	changed.NewAccount = testAccount(2, nil, types.SystemProgramID)

	if ComputeDeltaHash([]types.AccountDelta{delta}) == ComputeDeltaHash([]types.AccountDelta{changed}) {
		t.Error("hash does not reflect account state")
	}
}
