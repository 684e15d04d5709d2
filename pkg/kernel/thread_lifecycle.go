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
	"errors"
	"fmt"
	"time"

	"github.com/coreruntime/novakernel/pkg/errdefs"
	"github.com/coreruntime/novakernel/pkg/klog"
)

const (
	kernelStackSize = 64 * 1024
	userStackSize   = 8 * 1024 * 1024

	// userStackRegionTop and userStackRegionBottom bound the fixed
	// address region CreateThread reserves user stacks in; descending placement attempts walk down from
	// the top in userStackSize strides.
	userStackRegionTop    = uintptr(0x7f0000000000)
	userStackRegionBottom = uintptr(0x700000000000)
	userStackPlacementTries = 64
)

// CreateThreadArgs is the argument to Kernel.CreateThread.
type CreateThreadArgs struct {
	Name     string
	Priority int
	Process  *Process // target process; must not be in DEATH
	Kernel   bool     // selects the trampoline ("kernel flag selects the trampoline")
	Entry    func(arg any)
	Arg      any
}

// CreateThread implements this package's Create path.
func (k *Kernel) CreateThread(ctx context.Context, args CreateThreadArgs) (*Thread, error) {
	// Step 1: allocate a record (from the dead pool if one is free, a
	// fresh one otherwise) and a fresh id.
	t := k.reuseOrAllocThread()
	t.ID = k.allocThreadID()
	t.Name = truncateName(args.Name)
	t.Kernel = args.Kernel
	t.Priority = k.clampPriority(args.Priority)
	t.Entry = args.Entry
	t.Arg = args.Arg
	t.State = StateBirth
	t.NextState = StateBirth
	t.CurrentBucket = BucketKernel

	// Step 2: return-code wait handle and arch-specific per-thread
	// state.
	if k.sem != nil {
		semID, err := k.sem.Create(fmt.Sprintf("retcode-%d", t.ID), 0)
		if err != nil {
			return nil, err
		}
		t.RetCodeSem = semID
	}
	if k.arch != nil {
		t.ArchState = k.arch.InitThreadState(args.Entry, args.Arg, 0)
	}

	// Step 3: insert into the global thread index.
	k.threadMu.Lock()
	k.threads.put(int64(t.ID), t)
	k.threadMu.Unlock()

	// Step 4: under the process lock, locate the target process.
	k.processMu.Lock()
	proc := args.Process
	if proc == nil || proc.State == ProcDeath {
		k.processMu.Unlock()
		// Undo step 3.
		k.threadMu.Lock()
		k.threads.delete(int64(t.ID))
		k.threadMu.Unlock()
		return nil, errdefs.ErrTaskProcDeleted
	}
	proc.Threads.PushBack(t)
	proc.NumThreads++
	t.Process = proc
	if proc.MainThread == nil {
		proc.MainThread = t
	}
	k.processMu.Unlock()

	// Step 5: wired kernel stack in the kernel address space.
	if k.vm != nil {
		region, err := k.vm.CreateAnonRegion(nil, RegionSpec{
			Name:  fmt.Sprintf("kstack-%d", t.ID),
			Size:  kernelStackSize,
			Wired: true,
		})
		if err != nil {
			k.undoThreadCreate(t, proc)
			return nil, err
		}
		t.KernelStack = region
	}

	// Step 6: for user threads, reserve a user stack at descending
	// addresses until a free one is found.
	if !args.Kernel && k.vm != nil {
		var userRegion Region
		var as AddressSpace
		if proc.AddressSpace != nil {
			as = proc.AddressSpace
		}
		for i := 0; i < userStackPlacementTries; i++ {
			hint := userStackRegionTop - uintptr(i)*userStackSize
			if hint < userStackRegionBottom {
				break
			}
			r, err := k.vm.CreateAnonRegion(as, RegionSpec{
				Name:     fmt.Sprintf("ustack-%d", t.ID),
				Size:     userStackSize,
				Writable: true,
				AddrHint: hint,
				TopDown:  true,
			})
			if err == nil {
				userRegion = r
				break
			}
		}
		if userRegion == nil {
			klog.Warningf("kernel: no free user stack address found for thread %d after %d tries", t.ID, userStackPlacementTries)
			panic("kernel: no free user stack address found")
		}
		t.UserStack = userRegion
	}

	// Step 7: install an architecture-prepared initial kernel stack
	// that, on first dispatch, re-enables interrupts and calls the
	// appropriate trampoline.
	if k.arch != nil && t.KernelStack != nil {
		k.arch.PrepareKernelStack(t.KernelStack, func() {
			if args.Entry != nil {
				args.Entry(args.Arg)
			}
		})
	}

	// Step 8: mark SUSPENDED; resumption is explicit via CONT.
	k.threadMu.Lock()
	t.State = StateSuspended
	k.threadMu.Unlock()

	klog.ForThread(int64(t.ID)).Debugf("created in process %d, priority %d", proc.ID, t.Priority)
	return t, nil
}

// undoThreadCreate reverses steps 3-4 of CreateThread after a later
// step fails.
func (k *Kernel) undoThreadCreate(t *Thread, proc *Process) {
	k.processMu.Lock()
	proc.Threads.Remove(t)
	proc.NumThreads--
	if proc.MainThread == t {
		proc.MainThread = nil
	}
	k.processMu.Unlock()

	k.threadMu.Lock()
	k.threads.delete(int64(t.ID))
	k.threadMu.Unlock()
}

// reuseOrAllocThread pops a record from the dead queue if one is
// available ("thread records are pooled"), else allocates
// fresh. A record popped from the pool is quiesced under threadMu
// (it can only have been pushed there by finishExit, itself run under
// threadMu) so resetting it here cannot race a concurrent reader.
func (k *Kernel) reuseOrAllocThread() *Thread {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	if !k.dead.Empty() {
		t := k.dead.PopFront()
		t.resetForReuse()
		return t
	}
	return newThread(0, "", 0)
}

// resetForReuse clears every field of a pooled record that
// CreateThread's step-1 initialization does not itself overwrite, so
// that a reused record cannot observe the previous occupant's
// accounting, signal, or wait state. Fields CreateThread unconditionally
// assigns (ID, Name, Kernel, Priority, Entry, Arg, State, NextState,
// CurrentBucket) are left for it to set. RetCodeSem and ArchState are
// cleared here because CreateThread sets them only when the Semaphore
// and Arch collaborators are present.
func (t *Thread) resetForReuse() {
	t.RetCodeSem = 0
	t.ArchState = nil
	t.CPU = nil
	t.FPUOwner = nil
	t.FPUSaved = false
	t.KernelStack = nil
	t.UserStack = nil
	t.Process = nil

	t.UserTime = 0
	t.KernelTime = 0
	t.LastTime = time.Time{}

	t.Pending = 0
	t.Blocked = 0
	t.Actions = [64]SignalAction{}
	t.AlarmTimer = 0

	t.IRQDisableDepth = 0
	t.InKernel = false
	t.BlockedSem = 0
	t.BlockedFlags = SemFlags{}

	t.Errno = 0

	t.deathStackBit = -1
}

// Wait implements this package's Wait: send CONT (in case the target
// is the victim of an in-progress kill), then block on its return-code
// wait handle. ERR_SEM_DELETED is normalized to success; the exit code
// is read back via the Semaphore collaborator's RetCode.
func (k *Kernel) Wait(ctx context.Context, t *Thread) (int32, error) {
	k.Resume(t)
	if k.sem == nil {
		return 0, nil
	}
	err := k.sem.Acquire(ctx, t.RetCodeSem, SemFlags{Interruptable: true})
	if err != nil {
		if errors.Is(err, errdefs.ErrSemDeleted) {
			return k.sem.RetCode(t.RetCodeSem), nil
		}
		return 0, err
	}
	return k.sem.RetCode(t.RetCodeSem), nil
}

// Kill sends SIGKILLTHR to t. If sync is true, it then waits for t to
// exit and returns its exit code ("Kill is a SIGKILLTHR
// send; synchronous kill then waits on the thread").
func (k *Kernel) Kill(ctx context.Context, t *Thread, sync bool) (int32, error) {
	k.signalThread(t, SigKillThr)
	if !sync {
		return 0, nil
	}
	return k.Wait(ctx, t)
}

// SetPriority implements the exposed set-priority operation.
func (k *Kernel) SetPriority(t *Thread, priority int) {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	k.setPriorityLocked(t, priority)
}
