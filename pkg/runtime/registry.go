package runtime

import (
	"errors"
	"sync"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

// Registry errors
var (
	// ErrProgramNotFound indicates the program is not registered.
	ErrProgramNotFound = errors.New("program not found")
)

// ProgramExecutor defines the interface for program execution.
// Programs implement this interface to handle instructions.
type ProgramExecutor interface {
	// Execute executes an instruction within the given context.
	// Returns an error if execution fails.
	Execute(ctx *ExecutionContext, instruction *types.Instruction) error
}

// ProgramExecutorFunc is a function adapter for ProgramExecutor.
type ProgramExecutorFunc func(ctx *ExecutionContext, instruction *types.Instruction) error

// Execute implements ProgramExecutor.
func (f ProgramExecutorFunc) Execute(ctx *ExecutionContext, instruction *types.Instruction) error {
	return f(ctx, instruction)
}

// ProgramRegistry manages the mapping of program IDs to their executors.
type ProgramRegistry struct {
	mu       sync.RWMutex
	programs map[types.Pubkey]ProgramExecutor
	names    map[types.Pubkey]string
}

// NewProgramRegistry creates a new program registry.
func NewProgramRegistry() *ProgramRegistry {
	return &ProgramRegistry{
		programs: make(map[types.Pubkey]ProgramExecutor),
		names:    make(map[types.Pubkey]string),
	}
}

// RegisterProgram registers a program executor for the given program ID.
func (r *ProgramRegistry) RegisterProgram(id types.Pubkey, executor ProgramExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = executor
}

// RegisterProgramWithName registers a program executor with a name for debugging.
func (r *ProgramRegistry) RegisterProgramWithName(id types.Pubkey, name string, executor ProgramExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = executor
	r.names[id] = name
}

// GetProgram returns the executor for the given program ID.
func (r *ProgramRegistry) GetProgram(id types.Pubkey) (ProgramExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.programs[id]
	return executor, ok
}

// GetProgramName returns the name for the given program ID.
func (r *ProgramRegistry) GetProgramName(id types.Pubkey) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// HasProgram checks if a program is registered.
func (r *ProgramRegistry) HasProgram(id types.Pubkey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.programs[id]
	return ok
}

// ListPrograms returns all registered program IDs.
func (r *ProgramRegistry) ListPrograms() []types.Pubkey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.Pubkey, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	return ids
}
