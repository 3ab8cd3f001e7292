// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package auth

import (
	"github.com/samber/oops"

	"github.com/devcollab/devcollab/pkg/errutil"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errutil.ErrNotFound

// errInvalidCredentials is shared by every login failure so callers cannot
// tell an unknown email from a wrong password.
func errInvalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		Public("invalid credentials").
		Wrap(errutil.ErrUnauthenticated)
}

// errInvalidSession is shared by every session token failure.
func errInvalidSession() error {
	return oops.Code("SESSION_INVALID").
		Public("invalid or expired session").
		Wrap(errutil.ErrUnauthenticated)
}
