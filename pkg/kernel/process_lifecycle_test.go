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
)

// runToExit simulates p's main thread running on cpu and calling Exit
// on itself with the given retcode.
func (k *Kernel) runToExit(ctx context.Context, p *Process, cpu *CPU, retcode int32) {
	th := p.MainThread
	k.threadMu.Lock()
	th.State = StateRunning
	th.CPU = cpu
	cpu.Current = th
	k.threadMu.Unlock()
	k.Exit(ctx, th, retcode, cpu)
}

// TestExitReapsChildren: parent P creates child C; P exits; C's new
// parent is P's parent.
func TestExitReapsChildren(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()
	cpu := &k.cpus[0]

	parent := k.newTestProcess("parent", nil)
	parent.MainThread = k.makeMainThread(parent)
	child := k.newTestProcess("child", parent)
	child.MainThread = k.makeMainThread(child)

	k.runToExit(ctx, parent, cpu, 0)

	k.processMu.Lock()
	defer k.processMu.Unlock()
	if child.Parent != k.kernelProcess {
		t.Fatalf("child's new parent: got %v, want kernel process", child.Parent.Name)
	}
	found := false
	k.kernelProcess.Children.Each(func(c *Process) {
		if c == child {
			found = true
		}
	})
	if !found {
		t.Fatalf("child not linked into new parent's children list")
	}
}

// TestOrphanedPgroupGetsSIGHUPSIGCONT: parent P in pgroup g1 and
// child C in pgroup g2 share a session. P exits; C's pgroup g2
// becomes orphaned; C's main thread receives SIGHUP then SIGCONT.
func TestOrphanedPgroupGetsSIGHUPSIGCONT(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()
	cpu := &k.cpus[0]

	parent := k.newTestProcess("parent", nil)
	parent.MainThread = k.makeMainThread(parent)

	child := k.newTestProcess("child", parent)
	child.MainThread = k.makeMainThread(child)
	// Put the child in its own process group within the same session.
	if err := k.SetPGID(child, child.ID, PGID(child.ID)); err != nil {
		t.Fatalf("SetPGID: %v", err)
	}

	k.runToExit(ctx, parent, cpu, 0)

	k.threadMu.Lock()
	pending := child.MainThread.Pending
	k.threadMu.Unlock()
	if !pending.Has(SigHup) {
		t.Fatalf("orphaned pgroup's main thread did not receive SIGHUP")
	}
	if !pending.Has(SigCont) {
		t.Fatalf("orphaned pgroup's main thread did not receive SIGCONT")
	}
}

// makeMainThread registers a bare thread as p's main thread, bypassing
// CreateThread, for tests that drive exit/reparent logic directly.
func (k *Kernel) makeMainThread(p *Process) *Thread {
	th := newThread(k.allocThreadID(), p.Name+"-main", k.cfg.MaxUserPriority)
	th.Process = p
	th.State = StateSuspended

	if k.sem != nil {
		id, err := k.sem.Create(p.Name+"-retcode", 0)
		if err == nil {
			th.RetCodeSem = id
		}
	}

	k.threadMu.Lock()
	k.threads.put(int64(th.ID), th)
	k.threadMu.Unlock()

	k.processMu.Lock()
	p.Threads.PushBack(th)
	p.NumThreads++
	if p.MainThread == nil {
		p.MainThread = th
	}
	k.processMu.Unlock()

	return th
}

// TestDeathStackGating: on a single death stack, two concurrently
// exiting threads serialize through the gate with no deadlock.
func TestDeathStackGating(t *testing.T) {
	// nkconfig.Default() already sizes the pool to one death stack on
	// a one-CPU system, matching the scenario's premise directly.
	k := newTestKernel(t)
	cpu := &k.cpus[0]
	ctx := context.Background()

	proc := k.newTestProcess("p", nil)
	a := k.makeMainThread(proc)
	b := k.makeMainThread(k.newTestProcess("q", nil))

	done := make(chan struct{}, 2)
	go func() {
		k.Exit(ctx, a, 1, cpu)
		done <- struct{}{}
	}()
	go func() {
		k.Exit(ctx, b, 2, cpu)
		done <- struct{}{}
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("death-stack gating deadlocked")
		}
	}

	if got := k.deathStacks.popcount(); got != 0 {
		t.Fatalf("death-stack bitmap popcount after both exits: got %d, want 0", got)
	}
}
