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

import "testing"

// TestProcessLockOrderAllowsThreadLockNested covers the legal
// ordering: the process lock may be held over acquisition of the
// thread lock.
func TestProcessLockOrderAllowsThreadLockNested(t *testing.T) {
	var pm processMutex
	pm.order = newLockOrder()
	var tm threadMutex

	pm.Lock()
	tm.Lock()
	tm.Unlock()
	pm.Unlock()
}

// TestProcessLockReacquireByCallerPanics covers this package's testable
// property: no code path acquires the thread lock while holding the
// process lock and then attempts to reacquire the process lock.
func TestProcessLockReacquireByCallerPanics(t *testing.T) {
	var pm processMutex
	pm.order = newLockOrder()

	pm.Lock()
	defer pm.Unlock()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected reacquiring the process lock on the same goroutine to panic")
		}
	}()
	pm.Lock()
}

// TestKernelLockOrderRealWorld exercises the real ordering our own
// helpers use: makeMainThread takes threadMu then processMu in
// sequence (never nested the wrong way), and SignalProcessGroup holds
// processMu across calls into signal delivery, which internally takes
// threadMu. Both should complete without panicking.
func TestKernelLockOrderRealWorld(t *testing.T) {
	k := newTestKernel(t)
	proc := k.newTestProcess("p", nil)
	th := k.makeMainThread(proc)
	if th.State != StateSuspended {
		t.Fatalf("unexpected thread state: %v", th.State)
	}
	k.SignalProcessGroup(proc.PGID, SigHup)
}
