// Package runtime provides the in-process execution environment for
// native programs: the per-invocation account context, program derived
// address computation, and cross-program invocation.
package runtime

import (
	"errors"
	"fmt"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Context errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotWritable  = errors.New("account is not writable")
	ErrAccountNotSigner    = errors.New("account is not a signer")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrMaxLogsExceeded     = errors.New("maximum log entries exceeded")
	ErrInvalidAccountIndex = errors.New("invalid account index")
	ErrReadOnlyModified    = errors.New("read-only account was modified")
)

// Limits for execution
const (
	MaxLogMessages      = 64
	MaxLogMessageLength = 10000
	MaxAccountDataSize  = 10 * 1024 * 1024 // 10MB
	MaxCPIDepth         = 4
)

// AccountInfo represents account information available to a program.
type AccountInfo struct {
	Pubkey     types.Pubkey
	Lamports   *uint64 // Pointer allows modification detection
	Data       []byte
	Owner      types.Pubkey
	Executable bool
	RentEpoch  uint64
	IsSigner   bool
	IsWritable bool
}

// Clone creates a deep copy of AccountInfo.
func (a *AccountInfo) Clone() *AccountInfo {
	if a == nil {
		return nil
	}
	lamports := *a.Lamports
	clone := &AccountInfo{
		Pubkey:     a.Pubkey,
		Lamports:   &lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
		RentEpoch:  a.RentEpoch,
		IsSigner:   a.IsSigner,
		IsWritable: a.IsWritable,
	}
	if a.Data != nil {
		clone.Data = make([]byte, len(a.Data))
		copy(clone.Data, a.Data)
	}
	return clone
}

// ExecutionContext holds the execution state of one program invocation.
type ExecutionContext struct {
	// Program being executed
	ProgramID types.Pubkey

	// Accounts available to the instruction, in instruction order
	Accounts []*AccountInfo

	// Account index by pubkey for fast lookup
	accountIndex map[types.Pubkey]int

	// Instruction data
	InstructionData []byte

	// Registry resolves program IDs during cross-program invocation
	Registry *ProgramRegistry

	// Execution logs
	logs    []string
	maxLogs int

	// Depth of CPI calls
	Depth int

	// Stack of callers for CPI
	CallerStack []types.Pubkey

	// Rent parameters
	RentLamportsPerByteYear uint64
	RentExemptionThreshold  uint64
}

// NewExecutionContext creates a new execution context.
func NewExecutionContext(programID types.Pubkey, accounts []*AccountInfo, instructionData []byte) *ExecutionContext {
	ctx := &ExecutionContext{
		ProgramID:       programID,
		Accounts:        accounts,
		InstructionData: instructionData,
		accountIndex:    make(map[types.Pubkey]int),
		logs:            make([]string, 0, MaxLogMessages),
		maxLogs:         MaxLogMessages,
		CallerStack:     make([]types.Pubkey, 0, 4),
		// Default rent parameters (mainnet values)
		RentLamportsPerByteYear: 3480,
		RentExemptionThreshold:  2,
	}

	// Build account index
	for i, acc := range accounts {
		ctx.accountIndex[acc.Pubkey] = i
	}

	return ctx
}

// AddLog adds a log message.
func (ctx *ExecutionContext) AddLog(message string) error {
	if len(ctx.logs) >= ctx.maxLogs {
		return ErrMaxLogsExceeded
	}
	if len(message) > MaxLogMessageLength {
		message = message[:MaxLogMessageLength]
	}
	ctx.logs = append(ctx.logs, message)
	return nil
}

// Logf formats and adds a log message, dropping it silently once the
// log limit is reached.
func (ctx *ExecutionContext) Logf(format string, args ...interface{}) {
	_ = ctx.AddLog(fmt.Sprintf(format, args...))
}

// GetLogs returns all log messages.
func (ctx *ExecutionContext) GetLogs() []string {
	logs := make([]string, len(ctx.logs))
	copy(logs, ctx.logs)
	return logs
}

// GetAccount returns an account by pubkey.
func (ctx *ExecutionContext) GetAccount(pubkey types.Pubkey) (*AccountInfo, error) {
	idx, ok := ctx.accountIndex[pubkey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey.String())
	}
	return ctx.Accounts[idx], nil
}

// GetAccountByIndex returns an account by index.
func (ctx *ExecutionContext) GetAccountByIndex(index int) (*AccountInfo, error) {
	if index < 0 || index >= len(ctx.Accounts) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAccountIndex, index)
	}
	return ctx.Accounts[index], nil
}

// AccountCount returns the number of accounts.
func (ctx *ExecutionContext) AccountCount() int {
	return len(ctx.Accounts)
}

// RentExemptMinimum computes the minimum balance for rent exemption of
// an account holding dataSize bytes, using this context's rent
// parameters.
func (ctx *ExecutionContext) RentExemptMinimum(dataSize uint64) uint64 {
	const accountOverhead = 128
	return (dataSize + accountOverhead) * ctx.RentLamportsPerByteYear * ctx.RentExemptionThreshold
}

// IsProgramOwned checks if an account is owned by the executing program.
func (ctx *ExecutionContext) IsProgramOwned(pubkey types.Pubkey) bool {
	acc, err := ctx.GetAccount(pubkey)
	if err != nil {
		return false
	}
	return acc.Owner == ctx.ProgramID
}

// GetCaller returns the current caller (program that invoked this one).
func (ctx *ExecutionContext) GetCaller() (types.Pubkey, bool) {
	if len(ctx.CallerStack) == 0 {
		return types.ZeroPubkey, false
	}
	return ctx.CallerStack[len(ctx.CallerStack)-1], true
}

// IsTopLevel returns true if this is the top-level execution (not a CPI call).
func (ctx *ExecutionContext) IsTopLevel() bool {
	return ctx.Depth == 0
}
