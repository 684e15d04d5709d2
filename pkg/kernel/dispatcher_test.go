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
	"testing"

	"github.com/coreruntime/novakernel/pkg/kerneltest"
	"github.com/coreruntime/novakernel/pkg/nkconfig"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	cfg := nkconfig.Default()
	return New(cfg, kerneltest.NewCollaborators())
}

// TestDispatchFIFO: three ready threads at the same regular priority
// are dispatched in enqueue order. Since only one priority level is
// populated, the randomized skip cannot change which level is chosen — only
// whether it is chosen on the first pass or via the fallback — so FIFO
// order is deterministic regardless of the RNG seed.
func TestDispatchFIFO(t *testing.T) {
	k := newTestKernel(t)
	cpu := &k.cpus[0]

	a := newThread(k.allocThreadID(), "a", 10)
	b := newThread(k.allocThreadID(), "b", 10)
	c := newThread(k.allocThreadID(), "c", 10)

	k.threadMu.Lock()
	k.enqueueLocked(a)
	k.enqueueLocked(b)
	k.enqueueLocked(c)
	k.threadMu.Unlock()

	k.threadMu.Lock()
	k.Dispatch(cpu)
	k.threadMu.Unlock()
	if cpu.Current != a {
		t.Fatalf("first dispatch: got %v, want a", cpu.Current.Name)
	}

	k.threadMu.Lock()
	k.Dispatch(cpu)
	k.threadMu.Unlock()
	if cpu.Current != b {
		t.Fatalf("second dispatch: got %v, want b", cpu.Current.Name)
	}

	k.threadMu.Lock()
	k.Dispatch(cpu)
	k.threadMu.Unlock()
	if cpu.Current != c {
		t.Fatalf("third dispatch: got %v, want c", cpu.Current.Name)
	}
}

// TestPriorityPreemption: a RT thread becomes ready while a
// priority-10 thread is running; the next dispatch picks the RT
// thread.
func TestPriorityPreemption(t *testing.T) {
	k := newTestKernel(t)
	cpu := &k.cpus[0]

	low := newThread(k.allocThreadID(), "low", 10)
	k.threadMu.Lock()
	k.enqueueLocked(low)
	k.Dispatch(cpu)
	k.threadMu.Unlock()
	if cpu.Current != low {
		t.Fatalf("expected low-priority thread to run first")
	}

	rt := newThread(k.allocThreadID(), "rt", k.cfg.MaxRTPriority)
	k.threadMu.Lock()
	k.enqueueLocked(rt)
	k.Dispatch(cpu)
	k.threadMu.Unlock()
	if cpu.Current != rt {
		t.Fatalf("expected RT thread to preempt, got %v", cpu.Current.Name)
	}
}

func TestSetPriorityRequeues(t *testing.T) {
	k := newTestKernel(t)
	th := newThread(k.allocThreadID(), "x", 10)
	k.threadMu.Lock()
	k.enqueueLocked(th)
	k.threadMu.Unlock()

	k.SetPriority(th, 20)
	if th.Priority != 20 {
		t.Fatalf("priority not updated: got %d", th.Priority)
	}
	k.threadMu.Lock()
	if k.runQueues[10].Front() == th {
		t.Fatalf("thread still on old priority queue")
	}
	if k.runQueues[20].Front() != th {
		t.Fatalf("thread not requeued onto new priority queue")
	}
	k.threadMu.Unlock()
}
