// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernel

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/coreruntime/novakernel/pkg/klog"
)

// deathStackPool implements the self-teardown sequence: a small fixed pool of
// pre-created wired kernel stacks, gated by a counting semaphore so
// that at most len(bitmap) threads hold one concurrently. x/sync's
// Weighted is a natural fit for the gate: Acquire(ctx, 1) blocks the
// second of two concurrent exiters on a 1-stack pool, without us
// hand-rolling a counting semaphore on top of sync.Mutex/sync.Cond the
// way a fuller ports/semaphore primitive would (that primitive is out
// of scope here).
type deathStackPool struct {
	gate   *semaphore.Weighted
	mu     threadMutex // the pool's own lock, separate from Kernel.threadMu
	bitmap []bool
}

func newDeathStackPool(n int) *deathStackPool {
	return &deathStackPool{
		gate:   semaphore.NewWeighted(int64(n)),
		bitmap: make([]bool, n),
	}
}

// acquire blocks until a stack is available, then returns its bitmap
// index. After the gate admits the caller, acquire takes the pool's
// own lock (not Kernel.threadMu) for the bitmap scan only: find the
// lowest zero bit, claim it, and release the lock. Interrupts are not
// disabled around the scan.
func (p *deathStackPool) acquire(ctx context.Context) (int, error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, used := range p.bitmap {
		if !used {
			p.bitmap[i] = true
			return i, nil
		}
	}
	// The gate's weight equals len(bitmap), so this is unreachable
	// unless the bitmap and gate have drifted out of sync.
	klog.Warningf("kernel: death-stack gate admitted a holder but bitmap is full (len=%d)", len(p.bitmap))
	panic("kernel: death-stack gate admitted a holder but bitmap is full")
}

// release returns bit to the pool and releases the gate with
// NO_RESCHED semantics (the self-teardown sequence): the caller is expected to
// perform its own single reschedule afterward rather than have this
// call trigger one.
func (p *deathStackPool) release(bit int) {
	p.mu.Lock()
	p.bitmap[bit] = false
	p.mu.Unlock()
	p.gate.Release(1)
}

// popcount returns the number of currently held death stacks, used by
// tests asserting this package's bitmap/semaphore consistency invariant.
func (p *deathStackPool) popcount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, used := range p.bitmap {
		if used {
			n++
		}
	}
	return n
}
