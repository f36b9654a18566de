// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was reverted.
type Kind int

const (
	// Internal is a storage or collaborator fault, not a protocol rule.
	Internal Kind = iota
	// Authorization rejects a caller that is not the operator.
	Authorization
	// Lifecycle rejects operations out of order: not initialized,
	// already initialized, not started, epoch not reached.
	Lifecycle
	// RangeViolation rejects a value outside its allowed bounds.
	RangeViolation
	// ZeroValue rejects a zero amount where a positive one is required.
	ZeroValue
	// InsufficientFunds rejects a transfer the payer cannot cover.
	InsufficientFunds
	// LockupActive rejects withdraw/claim before the lock window elapses.
	LockupActive
	// InvalidToken rejects sweeping a protected core token.
	InvalidToken
	// StalePrice rejects execution when price moved since the quote.
	StalePrice
	// ReplayGuard rejects a second guarded call in the same tick.
	ReplayGuard
)

func (k Kind) String() string {
	switch k {
	case Authorization:
		return "authorization"
	case Lifecycle:
		return "lifecycle"
	case RangeViolation:
		return "range violation"
	case ZeroValue:
		return "zero value"
	case InsufficientFunds:
		return "insufficient funds"
	case LockupActive:
		return "lockup active"
	case InvalidToken:
		return "invalid token"
	case StalePrice:
		return "stale price"
	case ReplayGuard:
		return "replay guard"
	default:
		return "internal"
	}
}

// ErrRevert is the error returned when an operation is rejected by a
// protocol rule. Every revert aborts the whole operation with full
// state rollback.
type ErrRevert struct {
	kind    Kind
	message string
}

// New creates a revert error of the given kind.
func New(kind Kind, format string, args ...any) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Kind returns the classification of the revert.
func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// IsRevertErr reports whether err is a protocol revert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Is reports whether err is a revert of the given kind.
func Is(err error, kind Kind) bool {
	var ve *ErrRevert
	if !errors.As(err, &ve) {
		return false
	}
	return ve.kind == kind
}
