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
	"time"

	"github.com/coreruntime/novakernel/pkg/ilist"
)

// ThreadID is a unique, monotonically assigned thread identifier.
type ThreadID int64

// CPUID identifies one of the Kernel's CPU records.
type CPUID int

// ThreadState is one of the six lifecycle states a thread can be in.
// The zero value is StateBirth, the state every thread is constructed
// in.
type ThreadState int

const (
	StateBirth ThreadState = iota
	StateReady
	StateRunning
	StateWaiting
	StateSuspended
	StateFreeOnResched
)

func (s ThreadState) String() string {
	switch s {
	case StateBirth:
		return "BIRTH"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateWaiting:
		return "WAITING"
	case StateSuspended:
		return "SUSPENDED"
	case StateFreeOnResched:
		return "FREE_ON_RESCHED"
	default:
		return "UNKNOWN"
	}
}

// TimeBucket selects which accumulator is currently accruing time for
// a thread ("which bucket is currently accruing").
type TimeBucket int

const (
	BucketKernel TimeBucket = iota
	BucketUser
)

// SignalNum identifies a signal. Only the signals the core's own
// lifecycle logic sends or reacts to are named; everything else is
// opaque to pkg/kernel.
type SignalNum int

const (
	SigHup     SignalNum = 1
	SigCont    SignalNum = 18
	SigStop    SignalNum = 19
	SigChld    SignalNum = 17
	SigKillThr SignalNum = 32
)

// SignalSet is a bitmask of pending or blocked signals.
type SignalSet uint64

// Set returns a copy of s with sig added.
func (s SignalSet) Set(sig SignalNum) SignalSet {
	return s | (1 << uint(sig))
}

// Clear returns a copy of s with sig removed.
func (s SignalSet) Clear(sig SignalNum) SignalSet {
	return s &^ (1 << uint(sig))
}

// Has reports whether sig is present in s.
func (s SignalSet) Has(sig SignalNum) bool {
	return s&(1<<uint(sig)) != 0
}

// SignalAction is the disposition configured for one signal number.
type SignalAction int

const (
	ActionDefault SignalAction = iota
	ActionIgnore
	ActionHandle
)

// maxNameLen bounds Thread.Name and Process.Name to a short,
// human-readable length.
const maxNameLen = 32

func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	return name[:maxNameLen]
}

// Thread is the schedulable entity.
type Thread struct {
	ID       ThreadID
	Name     string
	Kernel   bool // true for kernel threads (CreateThread reserves no user stack for them)

	State     ThreadState
	NextState ThreadState
	Priority  int

	CPU      *CPU // nil unless State == StateRunning
	FPUOwner *CPU
	FPUSaved bool

	KernelStack Region
	UserStack   Region // nil for kernel threads

	Process *Process

	Entry func(arg any)
	Arg   any

	// RetCodeSem is the per-thread return-code wait handle: on exit
	// the thread deletes this semaphore with its retcode, and waiters
	// treat errdefs.ErrSemDeleted as success.
	RetCodeSem SemID

	UserTime      time.Duration
	KernelTime    time.Duration
	LastTime      time.Time
	CurrentBucket TimeBucket

	Pending   SignalSet
	Blocked   SignalSet
	Actions   [64]SignalAction
	AlarmTimer TimerHandle

	IRQDisableDepth int
	InKernel        bool
	BlockedSem      SemID
	BlockedFlags    SemFlags

	Errno int32

	ArchState ArchThreadState

	// deathStackBit is the bitmap index held by this thread while it
	// tears itself down (the self-teardown sequence), or -1.
	deathStackBit int

	runEntry  ilist.Entry[*Thread] // run queue / dead queue membership
	procEntry ilist.Entry[*Thread] // Process.Threads membership
}

func newThread(id ThreadID, name string, priority int) *Thread {
	return &Thread{
		ID:            id,
		Name:          truncateName(name),
		State:         StateBirth,
		NextState:     StateBirth,
		Priority:      priority,
		deathStackBit: -1,
	}
}
