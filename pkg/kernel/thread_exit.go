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
	"time"

	"golang.org/x/time/rate"

	"github.com/coreruntime/novakernel/pkg/klog"
)

// siblingPollInterval is the polling period used while waiting for
// sibling threads to exit; a documented, deliberate simplification
// kept short enough for tests to stay deterministic.
const siblingPollInterval = 10 * time.Millisecond

// pollLogThrottle rate-limits the diagnostic line logged on every poll
// iteration below, using x/time/rate's Sometimes helper (gVisor's
// own retrieved pack pulls in golang.org/x/time as a transitive
// dependency of other rate-limited paths; Sometimes is the idiomatic
// choice here over a hand-rolled counter since it is built exactly for
// "log this, but not on every single call").
var pollLogThrottle rate.Sometimes

// Exit runs the self-teardown path . t must be the
// calling thread (there is no "exit another thread" operation; Kill
// delivers SIGKILLTHR and lets the victim run this same path).
// cpu is the CPU t is currently running on.
func (k *Kernel) Exit(ctx context.Context, t *Thread, retcode int32, cpu *CPU) {
	klog.ForThread(int64(t.ID)).Debugf("exiting with retcode %d", retcode)

	// Step 1: boost own priority to expedite teardown.
	k.threadMu.Lock()
	k.setPriorityLocked(t, k.cfg.MaxPriority)
	k.threadMu.Unlock()

	// Step 2: cancel pending alarms, delete the user stack, detach from
	// the owning process and reattach to the kernel process, swap to
	// the kernel address space.
	if t.AlarmTimer != 0 && k.timer != nil {
		k.timer.Cancel(t.AlarmTimer)
		t.AlarmTimer = 0
	}
	if t.UserStack != nil && k.vm != nil {
		k.vm.ReleaseRegion(t.UserStack)
		t.UserStack = nil
	}

	proc := t.Process
	isMainThread := proc != nil && proc.MainThread == t
	isKernelProcess := proc == k.kernelProcess

	if !isKernelProcess && proc != nil {
		k.detachFromProcessLocked(t, proc)
		k.attachToKernelProcessLocked(t)
		if k.arch != nil {
			k.arch.ContextSwitch(nil, t, nil)
		}
	}

	var rememberedParent *Process
	if isMainThread {
		rememberedParent = k.exitProcess(ctx, proc)
	}

	// Step 4: SIGCHLD to the remembered parent.
	if rememberedParent != nil && rememberedParent.MainThread != nil {
		k.deliverSignalNoResched(rememberedParent.MainThread, SigChld)
	}

	// Step 5: delete the return-code wait handle, publishing retcode.
	if k.sem != nil && t.RetCodeSem != 0 {
		k.sem.Delete(t.RetCodeSem, retcode)
	}

	// Step 6: acquire a death stack.
	bit, err := k.deathStacks.acquire(ctx)
	if err != nil {
		klog.Warningf("kernel: thread %d could not acquire a death stack: %v", t.ID, err)
		panic("kernel: death-stack pool acquire failed: " + err.Error())
	}
	t.deathStackBit = bit

	oldStack := t.KernelStack

	// Step 7/8: switch onto the death stack and run the continuation
	// there. A real Arch.SwitchStackAndCall never returns to this
	// goroutine; it abandons this call frame for the death stack's own.
	// The continuation performs step 8 in full.
	finish := func() {
		k.finishExit(t, cpu, oldStack)
	}
	if k.arch != nil {
		k.arch.SwitchStackAndCall(deathStackTop(bit), finish)
	} else {
		finish()
	}
}

// finishExit is the death-stack continuation of the self-teardown sequence.
func (k *Kernel) finishExit(t *Thread, cpu *CPU, oldStack Region) {
	if oldStack != nil && k.vm != nil {
		k.vm.ReleaseRegion(oldStack)
	}

	k.processMu.Lock()
	k.kernelProcess.Threads.Remove(t)
	k.kernelProcess.NumThreads--
	k.processMu.Unlock()

	k.threadMu.Lock()
	k.threads.delete(int64(t.ID))
	t.NextState = StateFreeOnResched
	t.FPUOwner = nil
	t.FPUSaved = false
	k.threadMu.Unlock()

	bit := t.deathStackBit
	t.deathStackBit = -1
	k.deathStacks.release(bit)

	k.threadMu.Lock()
	t.State = StateFreeOnResched
	k.dead.PushBack(t)
	k.Dispatch(cpu)
	k.threadMu.Unlock()
}

// detachFromProcessLocked removes t from proc's thread list. Callers
// must not hold threadMu (this takes processMu internally).
func (k *Kernel) detachFromProcessLocked(t *Thread, proc *Process) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	proc.Threads.Remove(t)
	proc.NumThreads--
	t.Process = nil
}

// attachToKernelProcessLocked inserts t into the kernel process's
// thread list.
func (k *Kernel) attachToKernelProcessLocked(t *Thread) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	k.kernelProcess.Threads.PushBack(t)
	k.kernelProcess.NumThreads++
	t.Process = k.kernelProcess
}

// waitForSiblingsToExit polls, step 3, until proc's
// thread count reaches zero.
func (k *Kernel) waitForSiblingsToExit(proc *Process) {
	for {
		k.processMu.Lock()
		n := proc.NumThreads
		k.processMu.Unlock()
		if n == 0 {
			return
		}
		pollLogThrottle.Do(func() {
			klog.ForProcess(int64(proc.ID)).Debugf("waiting for %d sibling threads to exit", n)
		})
		time.Sleep(siblingPollInterval)
	}
}

// deathStackTop computes a stack-top address for death-stack bit.
// There is no real backing memory here — the only real implementation
// of this address space is the architecture collaborator's own wired
// death-stack array; this helper exists so SwitchStackAndCall has a
// concrete uintptr to receive, matching the interface's signature.
func deathStackTop(bit int) uintptr {
	return uintptr(bit)
}
