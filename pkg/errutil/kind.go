// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package errutil

import "errors"

// Sentinel errors for the failure categories callers can act on. Domain code
// wraps these with an oops code and context; classification goes through
// errors.Is so the wrapping layers do not matter.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidOrExpired = errors.New("invalid or expired")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDeliveryFailed   = errors.New("delivery failed")
)

// Kind is the category of an error.
type Kind int

// Kind constants. KindInternal covers everything that is not one of the
// sentinels above.
const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindUnauthorized
	KindInvalidOrExpired
	KindConflict
	KindNotFound
	KindInvalidArgument
	KindDeliveryFailed
)

var kindStrings = [...]string{
	"internal",
	"unauthenticated",
	"unauthorized",
	"invalid_or_expired",
	"conflict",
	"not_found",
	"invalid_argument",
	"delivery_failed",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return kindStrings[KindInternal]
}

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidOrExpired, KindInvalidOrExpired},
	{ErrConflict, KindConflict},
	{ErrNotFound, KindNotFound},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrDeliveryFailed, KindDeliveryFailed},
}

// KindOf classifies err. A nil error is KindInternal; callers check for nil first.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindInternal
}
