package accounts

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Snapshot format (zstd-compressed stream):
// - magic:   6 bytes "CSNAP1"
// - count:   8 bytes (little-endian uint64)
// - records: count entries of
//     pubkey:      32 bytes
//     account_len: 4 bytes (little-endian uint32)
//     account:     account_len bytes (SerializeAccount format)

var snapshotMagic = []byte("CSNAP1")

var (
	// ErrInvalidSnapshot is returned when a snapshot stream is malformed.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// ExportSnapshot writes the full contents of db to a compressed snapshot
// file at path.
func ExportSnapshot(db AccountsDB, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	w := bufio.NewWriter(encoder)

	if _, err := w.Write(snapshotMagic); err != nil {
		return err
	}
	var count [8]byte
	binary.LittleEndian.PutUint64(count[:], db.GetAccountsCount())
	if _, err := w.Write(count[:]); err != nil {
		return err
	}

	err = db.ForEachAccount(func(pubkey types.Pubkey, account *types.Account) error {
		serialized, err := SerializeAccount(account)
		if err != nil {
			return err
		}
		if _, err := w.Write(pubkey[:]); err != nil {
			return err
		}
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(len(serialized)))
		if _, err := w.Write(length[:]); err != nil {
			return err
		}
		_, err = w.Write(serialized)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to export accounts: %w", err)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return file.Sync()
}

// ImportSnapshot loads a snapshot file at path into db. Existing accounts
// with the same pubkeys are overwritten.
func ImportSnapshot(db AccountsDB, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	r := bufio.NewReader(decoder)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("%w: missing magic: %v", ErrInvalidSnapshot, err)
	}
	if string(magic) != string(snapshotMagic) {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, magic)
	}

	var countBuf [8]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return fmt.Errorf("%w: missing account count: %v", ErrInvalidSnapshot, err)
	}
	count := binary.LittleEndian.Uint64(countBuf[:])

	for i := uint64(0); i < count; i++ {
		var pubkey types.Pubkey
		if _, err := io.ReadFull(r, pubkey[:]); err != nil {
			return fmt.Errorf("%w: truncated at record %d: %v", ErrInvalidSnapshot, i, err)
		}

		var lengthBuf [4]byte
		if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
			return fmt.Errorf("%w: truncated at record %d: %v", ErrInvalidSnapshot, i, err)
		}
		length := binary.LittleEndian.Uint32(lengthBuf[:])

		serialized := make([]byte, length)
		if _, err := io.ReadFull(r, serialized); err != nil {
			return fmt.Errorf("%w: truncated at record %d: %v", ErrInvalidSnapshot, i, err)
		}

		account, err := DeserializeAccount(serialized)
		if err != nil {
			return fmt.Errorf("%w: record %d: %v", ErrInvalidSnapshot, i, err)
		}
		if err := db.SetAccount(pubkey, account); err != nil {
			return fmt.Errorf("failed to store account %s: %w", pubkey, err)
		}
	}

	return nil
}
