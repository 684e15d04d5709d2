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

// Package sim provides the in-process collaborator implementations
// cmd/novaboot boots a real kernel.Kernel against. Virtual memory,
// architecture context switching and the rest of externals.go are
// deliberately out of this module's scope ; this package
// stands in for them with the same shape a real platform backend
// would have, the way runsc's boot process selects a pkg/sentry/platform
// implementation without pkg/sentry/kernel ever knowing which one.
//
// This is distinct from pkg/kerneltest, which exists only for
// pkg/kernel's own tests; sim is the driver a CLI binary links against
// to actually run something.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreruntime/novakernel/pkg/errdefs"
	"github.com/coreruntime/novakernel/pkg/kernel"
	"github.com/coreruntime/novakernel/pkg/klog"
)

// region is a named, sized address-space reservation. It holds no
// real memory; Base is synthesized from an incrementing counter so
// distinct regions never alias.
type region struct {
	name string
	base uintptr
}

func (r *region) Base() uintptr { return r.base }

// vm is an in-memory VM collaborator: address spaces are opaque
// incrementing ids, regions are tracked per address space so repeated
// lookups by name succeed.
type vm struct {
	mu      sync.Mutex
	nextAS  int
	nextReg uintptr
	regions map[string]*region
}

func newVM() *vm { return &vm{regions: make(map[string]*region)} }

func (v *vm) CreateAddressSpace() (kernel.AddressSpace, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextAS++
	return v.nextAS, nil
}

func (v *vm) DeleteAddressSpace(as kernel.AddressSpace) {
	klog.Debugf("sim: deleted address space %v", as)
}

func (v *vm) CreateAnonRegion(as kernel.AddressSpace, spec kernel.RegionSpec) (kernel.Region, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := fmt.Sprintf("%v:%s", as, spec.Name)
	if _, ok := v.regions[key]; ok {
		return nil, errdefs.ErrNoMemory
	}
	v.nextReg += spec.Size + 0x1000
	r := &region{name: spec.Name, base: v.nextReg}
	v.regions[key] = r
	return r, nil
}

func (v *vm) SwapActiveAddressSpace(cpu kernel.CPUID, as kernel.AddressSpace) {}

func (v *vm) LookupRegion(as kernel.AddressSpace, name string) (kernel.Region, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.regions[fmt.Sprintf("%v:%s", as, name)]
	return r, ok
}

func (v *vm) ReleaseRegion(r kernel.Region) {}

// sem is a channel-gated Semaphore collaborator, the same primitive
// shape a real futex-backed implementation would expose.
type sem struct {
	mu   sync.Mutex
	next int64
	all  map[kernel.SemID]*semState
}

type semState struct {
	count   int
	waiters []chan error
	deleted bool
	retcode int32
}

func newSem() *sem { return &sem{all: make(map[kernel.SemID]*semState)} }

func (s *sem) Create(name string, count int) (kernel.SemID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.all[kernel.SemID(s.next)] = &semState{count: count}
	return kernel.SemID(s.next), nil
}

func (s *sem) Acquire(ctx context.Context, id kernel.SemID, flags kernel.SemFlags) error {
	for {
		s.mu.Lock()
		st, ok := s.all[id]
		if !ok || st.deleted {
			s.mu.Unlock()
			return errdefs.ErrSemDeleted
		}
		if st.count > 0 {
			st.count--
			s.mu.Unlock()
			return nil
		}
		ch := make(chan error, 1)
		st.waiters = append(st.waiters, ch)
		s.mu.Unlock()

		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *sem) Release(id kernel.SemID, flags kernel.SemFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.all[id]
	if !ok || st.deleted {
		return errdefs.ErrSemDeleted
	}
	if len(st.waiters) > 0 {
		ch := st.waiters[0]
		st.waiters = st.waiters[1:]
		ch <- nil
		return nil
	}
	st.count++
	return nil
}

func (s *sem) Delete(id kernel.SemID, retcode int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.all[id]
	if !ok {
		return errdefs.ErrInvalidHandle
	}
	st.deleted = true
	st.retcode = retcode
	for _, ch := range st.waiters {
		ch <- errdefs.ErrSemDeleted
	}
	st.waiters = nil
	return nil
}

func (s *sem) RetCode(id kernel.SemID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all[id].retcode
}

// clock is a real-time Timer collaborator: one-shots and alarms are
// backed directly by time.AfterFunc, the same as a tickless kernel's
// programmable interval timer would be from the core's point of view.
type clock struct {
	mu     sync.Mutex
	next   int64
	timers map[kernel.TimerHandle]*time.Timer
}

func newClock() *clock { return &clock{timers: make(map[kernel.TimerHandle]*time.Timer)} }

func (c *clock) ArmOneShot(cpu kernel.CPUID, d time.Duration, cb func() kernel.RescheduleDecision) kernel.TimerHandle {
	c.mu.Lock()
	c.next++
	h := kernel.TimerHandle(c.next)
	c.mu.Unlock()
	t := time.AfterFunc(d, func() { cb() })
	c.mu.Lock()
	c.timers[h] = t
	c.mu.Unlock()
	return h
}

func (c *clock) Cancel(h kernel.TimerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[h]; ok {
		t.Stop()
		delete(c.timers, h)
	}
}

func (c *clock) ArmAlarm(d time.Duration, cb func()) kernel.TimerHandle {
	return c.ArmOneShot(0, d, func() kernel.RescheduleDecision { cb(); return kernel.NoReschedule })
}

// interrupts no-ops local interrupt masking: a single-process
// goroutine simulation has no interrupt controller to mask.
type interrupts struct{}

func (interrupts) Disable() kernel.InterruptState { return nil }
func (interrupts) Restore(kernel.InterruptState)  {}

// smp no-ops cross-CPU IPIs for the same reason.
type smp struct{}

func (smp) BroadcastTLBShootdown(except kernel.CPUID) {}
func (smp) BroadcastReschedule(cpu kernel.CPUID)      { klog.Debugf("sim: reschedule IPI to cpu %d", cpu) }

// ioContext is an opaque per-process file-table stand-in: just an
// open-file count copied from the parent, since novaboot never
// actually opens files on behalf of a simulated process.
type ioContext struct{ openCount int }

type ioFactory struct{ mu sync.Mutex }

func (f *ioFactory) Create(parent kernel.IOContext) (kernel.IOContext, error) {
	if p, ok := parent.(*ioContext); ok {
		return &ioContext{openCount: p.openCount}, nil
	}
	return &ioContext{}, nil
}

func (f *ioFactory) Free(kernel.IOContext) {}

// elfLoader "loads" any path by handing back a fixed, distinguishable
// entry point; there is no real ELF image to map.
type elfLoader struct{}

func (elfLoader) Load(as kernel.AddressSpace, path string) (uintptr, error) {
	klog.Debugf("sim: loaded %q into address space %v", path, as)
	return 0x400000, nil
}

// ports records which processes asked for cleanup, for ps/debug
// output; a real implementation would walk the port table.
type ports struct {
	mu       sync.Mutex
	released []kernel.ProcessID
}

func (p *ports) ReleaseAllOwnedBy(pid kernel.ProcessID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, pid)
	klog.Debugf("sim: released ports owned by process %d", pid)
}

// arch runs SwitchStackAndCall's continuation on the calling
// goroutine: there is no second stack to switch to in a Go process,
// which is the same limitation pkg/kerneltest's fake documents.
type arch struct{}

func (arch) InitThreadState(entry func(arg any), arg any, userStack uintptr) kernel.ArchThreadState {
	return nil
}
func (arch) PrepareKernelStack(stack kernel.Region, trampoline func()) {}
func (arch) ContextSwitch(prev, next *kernel.Thread, newAS kernel.AddressSpace) {}
func (arch) EnterUserMode(t *kernel.Thread)                                    {}
func (arch) SwitchStackAndCall(stackTop uintptr, continuation func())         { continuation() }

var (
	_ kernel.VM               = (*vm)(nil)
	_ kernel.Semaphore        = (*sem)(nil)
	_ kernel.Timer            = (*clock)(nil)
	_ kernel.Interrupt        = interrupts{}
	_ kernel.SMP              = smp{}
	_ kernel.IOContextFactory = (*ioFactory)(nil)
	_ kernel.ELFLoader        = elfLoader{}
	_ kernel.PortsCleanup     = (*ports)(nil)
	_ kernel.Arch             = arch{}
)

// Collaborators builds a fresh kernel.Collaborators bundle backed by
// this package's in-process implementations, seeded for reproducible
// dispatcher behavior across runs.
func Collaborators(seed int64) kernel.Collaborators {
	return kernel.Collaborators{
		VM:        newVM(),
		Sem:       newSem(),
		Timer:     newClock(),
		Interrupt: interrupts{},
		SMP:       smp{},
		IOContext: &ioFactory{},
		ELF:       elfLoader{},
		Ports:     &ports{},
		Arch:      arch{},
		Seed:      seed,
	}
}
