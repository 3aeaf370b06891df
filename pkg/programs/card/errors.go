package card

import "errors"

// Card program errors
var (
	// ErrAlreadyInitialized indicates the stamp for this reference has already been registered.
	ErrAlreadyInitialized = errors.New("stamp already initialized")

	// ErrMissingSignature indicates a required authority did not sign.
	ErrMissingSignature = errors.New("missing required signature")

	// ErrIllegalOwner indicates a holding account's owner does not match expectation.
	ErrIllegalOwner = errors.New("illegal account owner")

	// ErrUninitializedAccount indicates a holding account exists but was never initialized.
	ErrUninitializedAccount = errors.New("uninitialized account")

	// ErrInvalidArgument indicates a malformed argument, e.g. a reference
	// that is not valid base58.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidInstructionData indicates the instruction payload is malformed.
	ErrInvalidInstructionData = errors.New("invalid instruction data")

	// ErrNotEnoughAccounts indicates the account list was exhausted before
	// all required handles were consumed.
	ErrNotEnoughAccounts = errors.New("not enough account keys")
)
