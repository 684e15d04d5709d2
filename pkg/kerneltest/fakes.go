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

// Package kerneltest provides fake implementations of every external
// collaborator interface pkg/kernel declares in externals.go, for use
// by pkg/kernel's own tests. None of these fakes is imported from
// non-test code; they exist only so the scheduler, lifecycle and
// lock-discipline logic can be exercised without a virtual-memory
// subsystem, semaphore primitive, or architecture backend actually
// present, mirroring the way gVisor's own arch.go states the
// entire architecture call surface as an interface precisely so test
// doubles can stand in for it.
package kerneltest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreruntime/novakernel/pkg/errdefs"
	"github.com/coreruntime/novakernel/pkg/kernel"
)

// FakeRegion is a no-op Region: Base always returns 0.
type FakeRegion struct{ name string }

func (r *FakeRegion) Base() uintptr { return 0 }

// FakeVM is an in-memory VM that tracks created regions by address
// space, name and address hint; it never actually reserves address
// space.
type FakeVM struct {
	mu      sync.Mutex
	asCount int
	regions map[string]bool
}

func NewFakeVM() *FakeVM {
	return &FakeVM{regions: make(map[string]bool)}
}

func (v *FakeVM) CreateAddressSpace() (kernel.AddressSpace, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.asCount++
	return v.asCount, nil
}

func (v *FakeVM) DeleteAddressSpace(as kernel.AddressSpace) {}

func (v *FakeVM) CreateAnonRegion(as kernel.AddressSpace, spec kernel.RegionSpec) (kernel.Region, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := fmt.Sprintf("%v:%s:%d", as, spec.Name, spec.AddrHint)
	if v.regions[key] {
		return nil, errdefs.ErrNoMemory
	}
	v.regions[key] = true
	return &FakeRegion{name: spec.Name}, nil
}

func (v *FakeVM) SwapActiveAddressSpace(cpu kernel.CPUID, as kernel.AddressSpace) {}

func (v *FakeVM) LookupRegion(as kernel.AddressSpace, name string) (kernel.Region, bool) {
	return nil, false
}

func (v *FakeVM) ReleaseRegion(kernel.Region) {}

// FakeSemaphore is an in-memory Semaphore using Go channels as the
// blocking primitive.
type FakeSemaphore struct {
	mu    sync.Mutex
	next  int64
	sems  map[kernel.SemID]*fakeSem
}

type fakeSem struct {
	count   int
	waiters []chan error
	deleted bool
	retcode int32
}

func NewFakeSemaphore() *FakeSemaphore {
	return &FakeSemaphore{sems: make(map[kernel.SemID]*fakeSem)}
}

func (s *FakeSemaphore) Create(name string, count int) (kernel.SemID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.sems[kernel.SemID(s.next)] = &fakeSem{count: count}
	return kernel.SemID(s.next), nil
}

func (s *FakeSemaphore) Acquire(ctx context.Context, id kernel.SemID, flags kernel.SemFlags) error {
	for {
		s.mu.Lock()
		sem, ok := s.sems[id]
		if !ok || sem.deleted {
			s.mu.Unlock()
			return errdefs.ErrSemDeleted
		}
		if sem.count > 0 {
			sem.count--
			s.mu.Unlock()
			return nil
		}
		ch := make(chan error, 1)
		sem.waiters = append(sem.waiters, ch)
		s.mu.Unlock()

		select {
		case err := <-ch:
			if err != nil {
				return err
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *FakeSemaphore) Release(id kernel.SemID, flags kernel.SemFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[id]
	if !ok || sem.deleted {
		return errdefs.ErrSemDeleted
	}
	if len(sem.waiters) > 0 {
		ch := sem.waiters[0]
		sem.waiters = sem.waiters[1:]
		ch <- nil
		return nil
	}
	sem.count++
	return nil
}

func (s *FakeSemaphore) Delete(id kernel.SemID, retcode int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[id]
	if !ok {
		return errdefs.ErrInvalidHandle
	}
	sem.deleted = true
	sem.retcode = retcode
	for _, ch := range sem.waiters {
		ch <- errdefs.ErrSemDeleted
	}
	sem.waiters = nil
	return nil
}

func (s *FakeSemaphore) RetCode(id kernel.SemID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[id]
	if !ok {
		return 0
	}
	return sem.retcode
}

// FakeTimer runs callbacks with real time.AfterFunc; Cancel stops the
// underlying timer.
type FakeTimer struct {
	mu     sync.Mutex
	next   int64
	timers map[kernel.TimerHandle]*time.Timer
}

func NewFakeTimer() *FakeTimer {
	return &FakeTimer{timers: make(map[kernel.TimerHandle]*time.Timer)}
}

func (t *FakeTimer) ArmOneShot(cpu kernel.CPUID, d time.Duration, cb func() kernel.RescheduleDecision) kernel.TimerHandle {
	t.mu.Lock()
	t.next++
	h := kernel.TimerHandle(t.next)
	t.mu.Unlock()
	timer := time.AfterFunc(d, func() { cb() })
	t.mu.Lock()
	t.timers[h] = timer
	t.mu.Unlock()
	return h
}

func (t *FakeTimer) Cancel(h kernel.TimerHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[h]; ok {
		timer.Stop()
		delete(t.timers, h)
	}
}

func (t *FakeTimer) ArmAlarm(d time.Duration, cb func()) kernel.TimerHandle {
	t.mu.Lock()
	t.next++
	h := kernel.TimerHandle(t.next)
	t.mu.Unlock()
	timer := time.AfterFunc(d, cb)
	t.mu.Lock()
	t.timers[h] = timer
	t.mu.Unlock()
	return h
}

// FakeInterrupt keeps no state and never actually masks anything
// (there is nothing to mask in a goroutine-based test).
type FakeInterrupt struct{}

func (FakeInterrupt) Disable() kernel.InterruptState { return nil }
func (FakeInterrupt) Restore(kernel.InterruptState)  {}

// FakeSMP no-ops both broadcast operations.
type FakeSMP struct{}

func (FakeSMP) BroadcastTLBShootdown(except kernel.CPUID) {}
func (FakeSMP) BroadcastReschedule(cpu kernel.CPUID)      {}

// FakeIOContext is an opaque counter value standing in for a real I/O
// context handle.
type FakeIOContext struct{ ID int }

// FakeIOContextFactory hands out incrementing FakeIOContext values.
type FakeIOContextFactory struct {
	mu   sync.Mutex
	next int
}

func NewFakeIOContextFactory() *FakeIOContextFactory { return &FakeIOContextFactory{} }

func (f *FakeIOContextFactory) Create(parent kernel.IOContext) (kernel.IOContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return &FakeIOContext{ID: f.next}, nil
}

func (f *FakeIOContextFactory) Free(kernel.IOContext) {}

// FakeELFLoader always "succeeds" at a fixed entry point.
type FakeELFLoader struct{ Entry uintptr }

func (f *FakeELFLoader) Load(as kernel.AddressSpace, path string) (uintptr, error) {
	return f.Entry, nil
}

// FakePortsCleanup records which process ids it was asked to release.
type FakePortsCleanup struct {
	mu        sync.Mutex
	Released []kernel.ProcessID
}

func (f *FakePortsCleanup) ReleaseAllOwnedBy(pid kernel.ProcessID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Released = append(f.Released, pid)
}

// FakeArch runs SwitchStackAndCall's continuation inline: a real
// implementation abandons the calling goroutine's stack in favor of
// the death stack's, which Go cannot express; the fake simply calls
// straight through, which is all the surrounding teardown logic needs
// to be exercised correctly.
type FakeArch struct{}

func (FakeArch) InitThreadState(entry func(arg any), arg any, userStack uintptr) kernel.ArchThreadState {
	return nil
}
func (FakeArch) PrepareKernelStack(stack kernel.Region, trampoline func()) {}
func (FakeArch) ContextSwitch(prev, next *kernel.Thread, newAS kernel.AddressSpace) {}
func (FakeArch) EnterUserMode(t *kernel.Thread)                                    {}
func (FakeArch) SwitchStackAndCall(stackTop uintptr, continuation func()) {
	continuation()
}

var (
	_ kernel.VM               = (*FakeVM)(nil)
	_ kernel.Semaphore        = (*FakeSemaphore)(nil)
	_ kernel.Timer            = (*FakeTimer)(nil)
	_ kernel.Interrupt        = FakeInterrupt{}
	_ kernel.SMP              = FakeSMP{}
	_ kernel.IOContextFactory = (*FakeIOContextFactory)(nil)
	_ kernel.ELFLoader        = (*FakeELFLoader)(nil)
	_ kernel.PortsCleanup     = (*FakePortsCleanup)(nil)
	_ kernel.Arch             = FakeArch{}
)

// NewCollaborators bundles fresh fakes of everything into a
// kernel.Collaborators, for tests that don't care about customizing
// any one collaborator.
func NewCollaborators() kernel.Collaborators {
	return kernel.Collaborators{
		VM:        NewFakeVM(),
		Sem:       NewFakeSemaphore(),
		Timer:     NewFakeTimer(),
		Interrupt: FakeInterrupt{},
		SMP:       FakeSMP{},
		IOContext: NewFakeIOContextFactory(),
		ELF:       &FakeELFLoader{},
		Ports:     &FakePortsCleanup{},
		Arch:      FakeArch{},
		Seed:      1,
	}
}
