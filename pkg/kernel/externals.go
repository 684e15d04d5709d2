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
)

// This file declares the narrow interfaces this package requires of
// each external collaborator. Each interface is a contract, not an
// implementation: pkg/kernel never constructs a concrete VM, Semaphore,
// Timer, etc. itself, treating these subsystems as deliberately out
// of scope. Concrete fakes used by this package's own tests live in
// pkg/kerneltest and are never imported from non-test code here,
// mirroring gVisor's arch.go pattern of stating the entire
// architecture-dependent call surface as an interface even though
// only one concrete implementation exists.

// AddressSpace is an opaque handle to a virtual address space, owned
// by the VM collaborator.
type AddressSpace interface{}

// Region is an opaque handle to a mapped region within an
// AddressSpace.
type Region interface {
	// Base returns the region's base address.
	Base() uintptr
}

// RegionSpec describes a region to create.
type RegionSpec struct {
	Name      string
	Size      uintptr
	Wired     bool
	Writable  bool
	AddrHint  uintptr
	TopDown   bool
}

// VM is the capability the core invokes on the virtual-memory
// subsystem: create/delete address spaces, create
// anonymous regions, swap the active address space on a CPU, look up
// and release regions.
type VM interface {
	CreateAddressSpace() (AddressSpace, error)
	DeleteAddressSpace(AddressSpace)
	CreateAnonRegion(as AddressSpace, spec RegionSpec) (Region, error)
	SwapActiveAddressSpace(cpu CPUID, as AddressSpace)
	LookupRegion(as AddressSpace, name string) (Region, bool)
	ReleaseRegion(Region)
}

// SemFlags carries the acquire/release modifiers: timeout,
// interruptability, and the no-reschedule deferral hint.
type SemFlags struct {
	Timeout       time.Duration // zero means no timeout
	Interruptable bool
	NoResched     bool
}

// SemID identifies a semaphore created through the Semaphore
// collaborator.
type SemID int64

// Semaphore is the capability the core invokes on the semaphore
// primitive: create, acquire with flags, release with
// flags, delete with a retcode delivered to waiters. Deleting a
// semaphore a thread is blocked on must cause a pending Acquire to
// return errdefs.ErrSemDeleted.
type Semaphore interface {
	Create(name string, count int) (SemID, error)
	Acquire(ctx context.Context, id SemID, flags SemFlags) error
	Release(id SemID, flags SemFlags) error
	// Delete removes the semaphore, waking any waiter with
	// errdefs.ErrSemDeleted. retcode is out-of-band data threads use
	// to implement the thread return-code wait handle (see Thread.Wait).
	Delete(id SemID, retcode int32) error
	// RetCode returns the value most recently passed to Delete for id,
	// valid only after Delete has been observed via ErrSemDeleted.
	RetCode(id SemID) int32
}

// TimerHandle identifies an armed one-shot or alarm timer.
type TimerHandle int64

// RescheduleDecision is the sentinel the interrupt collaborator
// returns: whether the interrupt tail should invoke the dispatcher.
type RescheduleDecision int

const (
	// NoReschedule means the interrupt tail should return directly to
	// the interrupted thread.
	NoReschedule RescheduleDecision = iota
	// Reschedule means the interrupt tail should call into the
	// dispatcher before returning.
	Reschedule
)

// Timer is the capability the core invokes on the timer subsystem:
// a one-shot per-CPU event with cancel (the quantum timer), and a
// per-thread alarm event.
type Timer interface {
	// ArmOneShot arms a one-shot timer on cpu that fires cb after d.
	// cb's return value becomes the interrupt tail's reschedule
	// decision: when the callback returns the Reschedule sentinel, the
	// interrupt tail calls the dispatcher.
	ArmOneShot(cpu CPUID, d time.Duration, cb func() RescheduleDecision) TimerHandle
	// Cancel cancels a previously armed timer. Canceling an already
	// fired timer is a no-op: if the current thread was preempted
	// (timer already fired), the old event is not re-cancelled.
	Cancel(TimerHandle)
	// ArmAlarm arms a per-thread alarm that fires cb after d.
	ArmAlarm(d time.Duration, cb func()) TimerHandle
}

// InterruptState is an opaque token returned by Interrupt.Disable and
// consumed by Interrupt.Restore.
type InterruptState interface{}

// Interrupt is the capability the core invokes to bracket critical
// sections: disable/restore local interrupts. Every
// mutation of an index, run queue, or process-group membership follows
// disable → lock → mutate → unlock → restore.
type Interrupt interface {
	Disable() InterruptState
	Restore(InterruptState)
}

// SMP is the capability the core invokes for cross-CPU coordination:
// broadcast IPIs for TLB shootdown and reschedule requests.
type SMP interface {
	BroadcastTLBShootdown(except CPUID)
	BroadcastReschedule(cpu CPUID)
}

// IOContext is an opaque handle to a thread/process's filesystem I/O
// context (open file table, cwd, ...), owned by the I/O context
// collaborator.
type IOContext interface{}

// IOContextFactory is the capability the core invokes on the I/O
// context subsystem: create (optionally cloned from a
// parent), and free.
type IOContextFactory interface {
	Create(parent IOContext) (IOContext, error)
	Free(IOContext)
}

// ELFLoader is the capability the core invokes to populate a freshly
// created address space and obtain an entry point .
type ELFLoader interface {
	Load(as AddressSpace, path string) (entry uintptr, err error)
}

// PortsCleanup is the capability the core invokes on process exit to
// bulk-release ports and owned semaphores .
type PortsCleanup interface {
	ReleaseAllOwnedBy(pid ProcessID)
}

// ArchThreadState is an opaque per-thread architecture state handle
// (register file, TLS, ...).
type ArchThreadState interface{}

// Arch is the capability the core invokes on the architecture-specific
// primitive: per-thread/per-process state init, preparing a
// kernel-thread stack for a trampoline, entering user mode,
// context-switching between two threads with an optional new
// translation map, and switching the raw stack pointer to invoke a
// continuation (the death-stack mechanism's final handoff).
//
// A real implementation of SwitchStackAndCall never returns to its
// caller — the goroutine's Go stack is abandoned in favor of the
// death-stack's call frame, which is why Go cannot express this
// primitive natively and it stays behind this interface; test fakes in
// pkg/kerneltest simply invoke the continuation inline.
type Arch interface {
	InitThreadState(entry func(arg any), arg any, userStack uintptr) ArchThreadState
	PrepareKernelStack(stack Region, trampoline func())
	ContextSwitch(prev, next *Thread, newAS AddressSpace)
	EnterUserMode(t *Thread)
	SwitchStackAndCall(stackTop uintptr, continuation func())
}
