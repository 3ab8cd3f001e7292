// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package errutil_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/devcollab/devcollab/pkg/errutil"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errutil.Kind
	}{
		{"nil", nil, errutil.KindInternal},
		{"plain error", errors.New("boom"), errutil.KindInternal},
		{"bare sentinel", errutil.ErrConflict, errutil.KindConflict},
		{"oops wrapped", oops.Code("X").Wrap(errutil.ErrUnauthorized), errutil.KindUnauthorized},
		{"double wrapped", oops.Code("OUTER").Wrap(oops.Code("INNER").Wrap(errutil.ErrNotFound)), errutil.KindNotFound},
		{"fmt wrapped", fmt.Errorf("ctx: %w", errutil.ErrDeliveryFailed), errutil.KindDeliveryFailed},
		{"unauthenticated", oops.Wrap(errutil.ErrUnauthenticated), errutil.KindUnauthenticated},
		{"invalid argument", oops.Wrap(errutil.ErrInvalidArgument), errutil.KindInvalidArgument},
		{"invalid or expired", oops.Wrap(errutil.ErrInvalidOrExpired), errutil.KindInvalidOrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.KindOf(tt.err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "conflict", errutil.KindConflict.String())
	assert.Equal(t, "internal", errutil.Kind(99).String())
}
