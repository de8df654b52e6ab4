// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rejects

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind uint8

const (
	// KindDomain marks domain validation failures: amounts out of bounds,
	// unknown or inactive targets, locks not yet expired.
	KindDomain Kind = iota + 1
	// KindPrecondition marks state preconditions: staking window not open,
	// missing records, pending requests in the way.
	KindPrecondition
)

// Rejection is a rejected operation. It aborts the whole operation with no
// partial state change; it never indicates corrupted state.
type Rejection struct {
	kind    Kind
	message string
}

func (r *Rejection) Error() string {
	return r.message
}

func (r *Rejection) Kind() Kind {
	return r.kind
}

func Domain(message string) *Rejection {
	return &Rejection{kind: KindDomain, message: message}
}

func Domainf(format string, args ...any) *Rejection {
	return &Rejection{kind: KindDomain, message: fmt.Sprintf(format, args...)}
}

func Precondition(message string) *Rejection {
	return &Rejection{kind: KindPrecondition, message: message}
}

func Preconditionf(format string, args ...any) *Rejection {
	return &Rejection{kind: KindPrecondition, message: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is (or wraps) a rejected operation.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	var r *Rejection
	return errors.As(err, &r)
}

// KindOf returns the rejection kind, or zero if err is not a rejection.
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.kind
	}
	return 0
}
