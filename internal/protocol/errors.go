package protocol

import "errors"

// Every operation surfaces one of these synchronously and leaves no partial
// effects behind; callers resubmit after satisfying the failed precondition.
var (
	// Validation.
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrDepositTooSmall  = errors.New("deposit below minimum")
	ErrConfigOutOfRange = errors.New("configuration out of range")
	ErrInvalidTriggerID = errors.New("invalid trigger id")

	// Authorization.
	ErrNotAdmin    = errors.New("caller is not the admin")
	ErrNotOracle   = errors.New("caller is not the oracle")
	ErrNotMultisig = errors.New("caller is not the multisig")

	// State conflicts.
	ErrCompensationActive   = errors.New("compensation event in progress")
	ErrNoActiveCompensation = errors.New("no active compensation event")
	ErrDormancyActive       = errors.New("dormancy recovery active")
	ErrDormancyInactive     = errors.New("dormancy recovery not active")
	ErrDormancyNotReached   = errors.New("dormancy threshold not reached")
	ErrNoProposal           = errors.New("no pending proposal")
	ErrProposalPending      = errors.New("a proposal is already pending")
	ErrTriggerExists        = errors.New("trigger already registered")
	ErrTriggerNotFound      = errors.New("trigger not found")
	ErrAlreadyClaimed       = errors.New("compensation already claimed")
	ErrAlreadyWithdrawn     = errors.New("dormancy share already withdrawn")
	ErrDepositsHalted       = errors.New("deposits halted pending trigger resolution")
	ErrNotEligible          = errors.New("position not eligible for this event")
	ErrWrongPolicy          = errors.New("operation not available under this allocation policy")
	ErrEmergencyDisabled    = errors.New("emergency triggers disabled")

	// Timing.
	ErrCooldownActive  = errors.New("trigger cooldown not elapsed")
	ErrConfirmTooEarly = errors.New("confirmation before minimum delay")
	ErrProposalExpired = errors.New("proposal past confirmation window")
	ErrClaimWindowOpen = errors.New("claim window not yet elapsed")

	// Liquidity / economic.
	ErrInsufficientLiquidity = errors.New("insufficient vault liquidity")
	ErrInsufficientBalance   = errors.New("insufficient liquid balance")
	ErrInsufficientPrincipal = errors.New("insufficient principal")
	ErrShareRoundsToZero     = errors.New("computed share rounds to zero")
	ErrNothingToHarvest      = errors.New("no yield to harvest")
	ErrNoClaimableYield      = errors.New("no claimable yield")
	ErrNothingToDistribute   = errors.New("yield pool is empty")
	ErrNoSeed                = errors.New("no seed to compensate from")
)
