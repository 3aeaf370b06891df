package runtime

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

func testPubkey(seed string) types.Pubkey {
	hash := sha256.Sum256([]byte(seed))
	var pk types.Pubkey
	copy(pk[:], hash[:])
	return pk
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	program := testPubkey("program")
	seeds := [][]byte{[]byte("stamp"), []byte("reference")}

	first, bump1, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}
	second, bump2, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}

	if first != second || bump1 != bump2 {
		t.Errorf("derivation not deterministic: %s/%d vs %s/%d", first, bump1, second, bump2)
	}
}

func TestFindProgramAddress_MatchesCreateProgramAddress(t *testing.T) {
	program := testPubkey("program")
	seeds := [][]byte{[]byte("stamp"), []byte("reference")}

	pda, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}

	recreated, err := CreateProgramAddress(append(seeds, []byte{bump}), program)
	if err != nil {
		t.Fatalf("CreateProgramAddress failed: %v", err)
	}
	if recreated != pda {
		t.Errorf("expected %s, got %s", pda, recreated)
	}
}

func TestFindProgramAddress_DifferentProgramsDiffer(t *testing.T) {
	seeds := [][]byte{[]byte("stamp")}

	a, _, err := FindProgramAddress(seeds, testPubkey("program_a"))
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}
	b, _, err := FindProgramAddress(seeds, testPubkey("program_b"))
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}
	if a == b {
		t.Error("different programs derived the same address")
	}
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	program := testPubkey("program")

	longSeed := make([]byte, MaxSeedLen+1)
	if _, err := CreateProgramAddress([][]byte{longSeed}, program); !errors.Is(err, ErrSeedTooLong) {
		t.Errorf("expected ErrSeedTooLong, got %v", err)
	}

	manySeeds := make([][]byte, MaxSeeds+1)
	for i := range manySeeds {
		manySeeds[i] = []byte{byte(i)}
	}
	if _, err := CreateProgramAddress(manySeeds, program); !errors.Is(err, ErrTooManySeeds) {
		t.Errorf("expected ErrTooManySeeds, got %v", err)
	}
}

func TestDeriveAssociatedTokenAddress(t *testing.T) {
	wallet := testPubkey("wallet")
	mint := testPubkey("mint")

	addr, _, err := DeriveAssociatedTokenAddress(wallet, mint, types.TokenProgramID)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress failed: %v", err)
	}

	other, _, err := DeriveAssociatedTokenAddress(testPubkey("other_wallet"), mint, types.TokenProgramID)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress failed: %v", err)
	}
	if addr == other {
		t.Error("different wallets derived the same associated account")
	}
}
