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
	"testing"
	"time"

	"github.com/coreruntime/novakernel/pkg/errdefs"
)

// newTestProcess registers a bare process directly into the kernel's
// indexes, bypassing CreateProcess's ELF-load/launch-thread machinery,
// for tests that only care about thread lifecycle or reaping.
func (k *Kernel) newTestProcess(name string, parent *Process) *Process {
	p := newProcess(k.allocProcessID(), name)
	if parent == nil {
		parent = k.kernelProcess
	}
	p.Parent = parent

	k.processMu.Lock()
	k.processes.put(int64(p.ID), p)
	parent.Children.PushBack(p)
	p.SID = parent.SID
	p.PGID = parent.PGID
	if s, ok := k.sessions.get(int64(p.SID)); ok {
		s.Members.PushBack(p)
	}
	if g, ok := k.pgroups.get(int64(p.PGID)); ok {
		g.Members.PushBack(p)
	}
	p.State = ProcNormal
	k.processMu.Unlock()
	return p
}

// TestCreateThreadWaitRoundTrip is this package's round-trip property:
// create_thread then wait_on_thread returns the exit code the thread
// passed to exit.
func TestCreateThreadWaitRoundTrip(t *testing.T) {
	k := newTestKernel(t)
	proc := k.newTestProcess("p", nil)

	ctx := context.Background()
	th, err := k.CreateThread(ctx, CreateThreadArgs{
		Name:     "worker",
		Priority: 10,
		Process:  proc,
	})
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if th.State != StateSuspended {
		t.Fatalf("new thread should start SUSPENDED, got %v", th.State)
	}
	if proc.MainThread != th {
		t.Fatalf("first thread inserted should become main_thread")
	}

	// Simulate the scheduler having already dispatched th onto a CPU,
	// without going through the real run queue: th is about to call
	// Exit on itself, which only ever happens while RUNNING.
	cpu := &k.cpus[0]
	k.threadMu.Lock()
	th.State = StateRunning
	th.CPU = cpu
	cpu.Current = th
	k.threadMu.Unlock()

	done := make(chan int32, 1)
	go func() {
		code, err := k.Wait(ctx, th)
		if err != nil {
			t.Errorf("Wait: %v", err)
		}
		done <- code
	}()

	// Give Wait a moment to block on the retcode semaphore before we
	// exit the thread.
	time.Sleep(5 * time.Millisecond)

	k.Exit(ctx, th, 42, cpu)

	select {
	case code := <-done:
		if code != 42 {
			t.Fatalf("exit code: got %d, want 42", code)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}

	k.threadMu.Lock()
	_, stillIndexed := k.threads.get(int64(th.ID))
	k.threadMu.Unlock()
	if stillIndexed {
		t.Fatalf("exited thread should be removed from the thread index")
	}
}

// TestCreateIntoDeath: creating a thread in a process already in
// DEATH fails with TASK_PROC_DELETED and leaves no leaked record in
// the thread index.
func TestCreateIntoDeath(t *testing.T) {
	k := newTestKernel(t)
	proc := k.newTestProcess("dying", nil)
	k.processMu.Lock()
	proc.State = ProcDeath
	k.processMu.Unlock()

	before := k.threads.len()
	_, err := k.CreateThread(context.Background(), CreateThreadArgs{
		Name:     "too-late",
		Priority: 10,
		Process:  proc,
	})
	if !errdefs.Is(err, errdefs.ErrTaskProcDeleted) {
		t.Fatalf("expected TASK_PROC_DELETED, got %v", err)
	}
	after := k.threads.len()
	if after != before {
		t.Fatalf("thread index grew from %d to %d despite failed create", before, after)
	}
}
