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
	"runtime"
	"strconv"
	"sync"
)

// This file implements the lock discipline's two global spinlocks
// (here, ordinary mutexes — goroutines already park instead of
// busy-waiting, so there is no benefit to a real spinlock) and the
// ordering rule between them.
//
// The wrapper types below are a hand-written analog of gVisor's
// generated per-lock mutex wrapper (thread_group_timer_mutex.go: a
// sync.Mutex plus a lock-order validator registered in an init()). We
// could not use gVisor's validator directly — it lives in
// gvisor's internal pkg/sync/locking, which is not a fetchable
// standalone module — so lockOrder below implements one assertion:
// a goroutine that holds the process lock panics if it tries to
// acquire the process lock again. It does not detect the process
// lock being acquired while the thread lock is held.

// goroutineID returns a best-effort identifier for the calling
// goroutine, parsed out of runtime.Stack the way several debug-only
// goroutine-local-storage shims in the wild do it. It is used only by
// the lock-order validator below, never on a path that affects
// observable kernel behavior.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// Stack trace starts with "goroutine 123 [running]:".
	const prefix = "goroutine "
	if len(b) <= len(prefix) {
		return -1
	}
	b = b[len(prefix):]
	i := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	id, err := strconv.ParseInt(string(b[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// lockOrder tracks, per goroutine, whether that goroutine currently
// holds the process lock. It exists purely to make this package's
// testable property ("no code path acquires the thread lock while
// holding the process lock and then attempts to reacquire the process
// lock") an assertion instead of a hope; it is a debug aid, not part
// of the locking protocol itself.
type lockOrder struct {
	mu      sync.Mutex
	holders map[int64]bool
}

func newLockOrder() *lockOrder {
	return &lockOrder{holders: make(map[int64]bool)}
}

func (o *lockOrder) markHeld() {
	gid := goroutineID()
	o.mu.Lock()
	o.holders[gid] = true
	o.mu.Unlock()
}

func (o *lockOrder) markReleased() {
	gid := goroutineID()
	o.mu.Lock()
	delete(o.holders, gid)
	o.mu.Unlock()
}

func (o *lockOrder) heldByCaller() bool {
	gid := goroutineID()
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.holders[gid]
}

// threadMutex wraps the global thread spinlock. It carries no lock-
// order validator of its own: the documented, legal case is acquiring
// the thread lock while already holding the process lock, so there is
// nothing for threadMutex.Lock to reject. The one forbidden ordering —
// reacquiring the process lock while already holding it — is instead
// asserted by processMutex below.
type threadMutex struct {
	mu sync.Mutex
}

func (m *threadMutex) Lock() {
	m.mu.Lock()
}

func (m *threadMutex) Unlock() {
	m.mu.Unlock()
}

// processMutex wraps the global process spinlock. Lock records that
// this goroutine now holds the process lock, so attempting to
// reacquire it from the same goroutine, the one ordering violation
// that is forbidden, can be caught by a debug assertion instead of
// deadlocking silently.
type processMutex struct {
	mu    sync.Mutex
	order *lockOrder
}

func (m *processMutex) Lock() {
	if m.order != nil && m.order.heldByCaller() {
		panic("kernel: process lock reacquired by the same goroutine while already held")
	}
	m.mu.Lock()
	if m.order != nil {
		m.order.markHeld()
	}
}

func (m *processMutex) Unlock() {
	if m.order != nil {
		m.order.markReleased()
	}
	m.mu.Unlock()
}
