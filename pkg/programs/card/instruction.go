package card

import (
	"encoding/binary"
	"fmt"
)

// Card program instruction discriminators (first byte of instruction data)
const (
	InstructionInit uint8 = 0
)

// InitArgs carries the arguments of the Init instruction.
//
// Wire layout (borsh, little-endian):
//
//	bump          u8
//	reference     u32 length + UTF-8 bytes
//	memo          u32 length + UTF-8 bytes
//	network_fee   u64
//	amount        u64
//	platform_fee  u8 presence + u64 if present
//	referrer_fee  u8 presence + u64 if present
type InitArgs struct {
	Bump        uint8
	Reference   string
	Memo        string
	NetworkFee  uint64
	Amount      uint64
	PlatformFee *uint64
	ReferrerFee *uint64
}

// decoder is a cursor over borsh-encoded instruction data.
type decoder struct {
	data   []byte
	offset int
}

func (d *decoder) remaining() int {
	return len(d.data) - d.offset
}

func (d *decoder) readByte() (uint8, error) {
	if d.remaining() < 1 {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrInvalidInstructionData, d.offset)
	}
	b := d.data[d.offset]
	d.offset++
	return b, nil
}

func (d *decoder) readUint64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrInvalidInstructionData, d.offset)
	}
	v := binary.LittleEndian.Uint64(d.data[d.offset : d.offset+8])
	d.offset += 8
	return v, nil
}

func (d *decoder) readString() (string, error) {
	if d.remaining() < 4 {
		return "", fmt.Errorf("%w: truncated at offset %d", ErrInvalidInstructionData, d.offset)
	}
	n := int(binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4]))
	d.offset += 4
	if d.remaining() < n {
		return "", fmt.Errorf("%w: string length %d exceeds payload", ErrInvalidInstructionData, n)
	}
	s := string(d.data[d.offset : d.offset+n])
	d.offset += n
	return s, nil
}

func (d *decoder) readOptionUint64() (*uint64, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: invalid option tag %d", ErrInvalidInstructionData, tag)
	}
}

// Decode decodes InitArgs from bytes (without the instruction tag).
func (a *InitArgs) Decode(data []byte) error {
	d := &decoder{data: data}
	var err error

	if a.Bump, err = d.readByte(); err != nil {
		return err
	}
	if a.Reference, err = d.readString(); err != nil {
		return err
	}
	if a.Memo, err = d.readString(); err != nil {
		return err
	}
	if a.NetworkFee, err = d.readUint64(); err != nil {
		return err
	}
	if a.Amount, err = d.readUint64(); err != nil {
		return err
	}
	if a.PlatformFee, err = d.readOptionUint64(); err != nil {
		return err
	}
	if a.ReferrerFee, err = d.readOptionUint64(); err != nil {
		return err
	}
	return nil
}

// Encode encodes the Init instruction, tag included.
func (a *InitArgs) Encode() []byte {
	size := 1 + 1 + 4 + len(a.Reference) + 4 + len(a.Memo) + 8 + 8 + 1 + 1
	if a.PlatformFee != nil {
		size += 8
	}
	if a.ReferrerFee != nil {
		size += 8
	}
	data := make([]byte, 0, size)

	data = append(data, InstructionInit)
	data = append(data, a.Bump)
	data = appendString(data, a.Reference)
	data = appendString(data, a.Memo)
	data = appendUint64(data, a.NetworkFee)
	data = appendUint64(data, a.Amount)
	data = appendOptionUint64(data, a.PlatformFee)
	data = appendOptionUint64(data, a.ReferrerFee)
	return data
}

func appendString(data []byte, s string) []byte {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	data = append(data, n[:]...)
	return append(data, s...)
}

func appendUint64(data []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(data, b[:]...)
}

func appendOptionUint64(data []byte, v *uint64) []byte {
	if v == nil {
		return append(data, 0)
	}
	data = append(data, 1)
	return appendUint64(data, *v)
}

// DecodeInstruction decodes the instruction tag and arguments.
func DecodeInstruction(data []byte) (*InitArgs, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty instruction data", ErrInvalidInstructionData)
	}
	if data[0] != InstructionInit {
		return nil, fmt.Errorf("%w: unknown instruction %d", ErrInvalidInstructionData, data[0])
	}
	args := &InitArgs{}
	if err := args.Decode(data[1:]); err != nil {
		return nil, err
	}
	return args, nil
}
