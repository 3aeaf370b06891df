package card

import (
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/GotokHQ/card-stamp/pkg/runtime"
	"github.com/GotokHQ/card-stamp/pkg/types"
)

// StampPrefix is the first derivation seed of every stamp address.
const StampPrefix = "stamp"

// StampAccountSize is the size of a serialized Stamp account.
const StampAccountSize = 1

// Stamp is the persistent receipt proving a reference has been
// processed. It holds nothing but the initialization flag; the proof is
// the account's existence at the derived address.
type Stamp struct {
	IsInitialized bool
}

// UnpackStamp deserializes a Stamp from account data.
func UnpackStamp(data []byte) (*Stamp, error) {
	if len(data) < StampAccountSize {
		return nil, fmt.Errorf("%w: stamp data too short, expected %d bytes, got %d",
			ErrInvalidInstructionData, StampAccountSize, len(data))
	}
	return &Stamp{IsInitialized: data[0] != 0}, nil
}

// Pack serializes the Stamp into account data.
func (s *Stamp) Pack(data []byte) error {
	if len(data) < StampAccountSize {
		return fmt.Errorf("%w: stamp data too short, expected %d bytes, got %d",
			ErrInvalidInstructionData, StampAccountSize, len(data))
	}
	if s.IsInitialized {
		data[0] = 1
	} else {
		data[0] = 0
	}
	return nil
}

// DecodeReference base58-decodes a reference into derivation seed bytes.
func DecodeReference(reference string) ([]byte, error) {
	ref, err := base58.Decode(reference)
	if err != nil {
		return nil, fmt.Errorf("%w: reference is not valid base58", ErrInvalidArgument)
	}
	return ref, nil
}

// StampSeeds returns the full derivation seeds for a decoded reference
// and bump.
func StampSeeds(reference []byte, bump uint8) [][]byte {
	return [][]byte{
		[]byte(StampPrefix),
		reference,
		{bump},
	}
}

// FindStampAddress derives the stamp address for a reference, returning
// the address and the bump seed.
func FindStampAddress(reference string) (types.Pubkey, uint8, error) {
	ref, err := DecodeReference(reference)
	if err != nil {
		return types.ZeroPubkey, 0, err
	}
	return runtime.FindProgramAddress([][]byte{[]byte(StampPrefix), ref}, types.CardProgramID)
}
