package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"seedpool/internal/protocol"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// respondError maps engine sentinels onto HTTP statuses. Anything the map
// does not recognize is a genuine internal failure.
func respondError(c *gin.Context, err error) {
	Error(c, statusFor(err), err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrInvalidAddress),
		errors.Is(err, protocol.ErrInvalidAmount),
		errors.Is(err, protocol.ErrDepositTooSmall),
		errors.Is(err, protocol.ErrInvalidTriggerID),
		errors.Is(err, protocol.ErrConfigOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrNotAdmin),
		errors.Is(err, protocol.ErrNotOracle),
		errors.Is(err, protocol.ErrNotMultisig):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrTriggerNotFound),
		errors.Is(err, protocol.ErrNoProposal):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrCompensationActive),
		errors.Is(err, protocol.ErrNoActiveCompensation),
		errors.Is(err, protocol.ErrDormancyActive),
		errors.Is(err, protocol.ErrDormancyInactive),
		errors.Is(err, protocol.ErrDormancyNotReached),
		errors.Is(err, protocol.ErrProposalPending),
		errors.Is(err, protocol.ErrTriggerExists),
		errors.Is(err, protocol.ErrAlreadyClaimed),
		errors.Is(err, protocol.ErrAlreadyWithdrawn),
		errors.Is(err, protocol.ErrDepositsHalted),
		errors.Is(err, protocol.ErrNotEligible),
		errors.Is(err, protocol.ErrWrongPolicy),
		errors.Is(err, protocol.ErrEmergencyDisabled),
		errors.Is(err, protocol.ErrCooldownActive),
		errors.Is(err, protocol.ErrConfirmTooEarly),
		errors.Is(err, protocol.ErrProposalExpired),
		errors.Is(err, protocol.ErrClaimWindowOpen):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrInsufficientLiquidity),
		errors.Is(err, protocol.ErrInsufficientBalance),
		errors.Is(err, protocol.ErrInsufficientPrincipal),
		errors.Is(err, protocol.ErrShareRoundsToZero),
		errors.Is(err, protocol.ErrNothingToHarvest),
		errors.Is(err, protocol.ErrNoClaimableYield),
		errors.Is(err, protocol.ErrNothingToDistribute),
		errors.Is(err, protocol.ErrNoSeed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// callerAddress is the acting identity the engine checks its role config
// against.
func callerAddress(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Caller-Address"))
}

func intQuery(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func uint64Param(c *gin.Context, key string) uint64 {
	v := strings.TrimSpace(c.Param(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	return map[string]any{
		"limit":  limit,
		"offset": offset,
		"total":  total,
	}
}
