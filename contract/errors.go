package contract

import "errors"

// Error kinds returned by transaction functions. Callers match them with
// errors.Is; every function wraps them with the operation name and details.
var (
	ErrNotOperational             = errors.New("contract is currently not operational")
	ErrCallerNotOwner             = errors.New("caller is not the contract owner")
	ErrNotInitialized             = errors.New("ledger is not initialized")
	ErrAlreadyInitialized         = errors.New("ledger is already initialized")
	ErrCallerNotRegisteredAirline = errors.New("not registered airline")
	ErrAirlineAlreadyRegistered   = errors.New("airline is already registered")
	ErrDuplicateVote              = errors.New("airline already voted for this candidate")
	ErrInsufficientFunding        = errors.New("deposit is inadequate")
	ErrFlightAlreadyExists        = errors.New("flight is already registered")
	ErrFlightNotRegistered        = errors.New("flight is not registered")
	ErrFlightStatusFinal          = errors.New("flight status is already finalized")
	ErrPremiumExceedsCap          = errors.New("premium exceeds the insurance cap")
	ErrInadequateFee              = errors.New("inadequate registration fee")
	ErrNotRegisteredOracle        = errors.New("not registered oracle")
	ErrIndexMismatch              = errors.New("index does not match oracle request")
	ErrRequestClosed              = errors.New("request is closed")
	ErrDuplicateResponse          = errors.New("oracle already responded to this request")
	ErrNoPayoutDue                = errors.New("not a flight to payout")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrInvalidArgument            = errors.New("invalid argument")
	ErrInsufficientBalance        = errors.New("insufficient wallet balance")
	ErrNotFound                   = errors.New("record not found")
)
