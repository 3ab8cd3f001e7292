// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package access_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/devcollab/devcollab/internal/access"
	"github.com/devcollab/devcollab/internal/access/accesstest"
)

// One engine is shared by every request, so Authorize must be safe to call
// from many goroutines and return the same decision each time.
func TestEngine_ConcurrentAuthorize(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := access.NewEngine()
	state, m := accesstest.NewProject(true)

	const workers = 32
	const perWorker = 200

	var allowed, denied atomic.Int64
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := m.Viewer
			if i%2 == 0 {
				actor = m.Outsider
			}
			for range perWorker {
				if engine.Can(actor, state, access.ActionProjectRead) {
					allowed.Add(1)
				} else {
					denied.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(workers/2*perWorker), allowed.Load())
	assert.Equal(t, int64(workers/2*perWorker), denied.Load())
}
