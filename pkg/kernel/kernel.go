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

// Package kernel implements the run-queue scheduler, thread lifecycle
// and process lifecycle of a small monolithic-kernel core: the
// schedulable Thread, the resource-owning Process, process groups and
// sessions, and the two-global-spinlock discipline that protects them.
//
// Everything below this package's boundary — virtual memory,
// semaphores, timers, interrupts, SMP/IPI, filesystem I/O contexts,
// ELF loading, port cleanup and architecture-specific context
// switching — is an external collaborator named in externals.go. This
// package never constructs a concrete implementation of any of them.
package kernel

import (
	"math/rand"
	"sync/atomic"

	"github.com/coreruntime/novakernel/pkg/ilist"
	"github.com/coreruntime/novakernel/pkg/klog"
	"github.com/coreruntime/novakernel/pkg/nkconfig"
)

// CPU is one of the Kernel's scheduling targets ("a fixed
// number of CPUs, each running at most one thread").
type CPU struct {
	ID      CPUID
	Current *Thread
	Idle    *Thread

	quantumTimer TimerHandle
	rescheduled  bool
}

// Kernel is the root object: it owns every index, run queue, lock and
// external collaborator handle. One process (the kernel process) is
// its own parent and the eventual reaper of every orphan.
type Kernel struct {
	cfg *nkconfig.Config

	threadMu  threadMutex
	processMu processMutex

	threads   *idIndex[*Thread]
	processes *idIndex[*Process]
	pgroups   *idIndex[*PGroup]
	sessions  *idIndex[*Session]

	nextThreadID  int64
	nextProcessID int64

	cpus []CPU

	// runQueues[p] holds threads at priority p in FIFO order; dead holds
	// threads that have exited but not yet been reaped.
	runQueues []ilist.List[*Thread]
	dead      ilist.List[*Thread]

	deathStacks *deathStackPool

	kernelProcess *Process

	rng *rand.Rand

	vm      VM
	sem     Semaphore
	timer   Timer
	intr    Interrupt
	smp     SMP
	ioctx   IOContextFactory
	elf     ELFLoader
	ports   PortsCleanup
	arch    Arch
}

// Collaborators bundles every external interface a Kernel needs,
// mirroring gVisor's own practice of taking a single "ctx"-like
// bundle of platform dependencies rather than nine separate
// constructor parameters (runsc/boot/loader.go's Loader construction
// takes a bundle of this shape: platform, network stack, filesystem
// config, ...).
type Collaborators struct {
	VM           VM
	Sem          Semaphore
	Timer        Timer
	Interrupt    Interrupt
	SMP          SMP
	IOContext    IOContextFactory
	ELF          ELFLoader
	Ports        PortsCleanup
	Arch         Arch

	// Seed seeds the dispatcher's randomized priority-skip: it should
	// be substitutable for deterministic tests. Zero uses an
	// unseeded-looking but fixed default so tests are reproducible
	// unless they explicitly ask for a different seed.
	Seed int64
}

// New constructs a Kernel with cfg.NumCPUs CPU records, boots the
// kernel process, and sizes the death-stack pool per cfg.NumDeathStacks.
func New(cfg *nkconfig.Config, c Collaborators) *Kernel {
	k := &Kernel{
		cfg:       cfg,
		threads:   newIDIndex[*Thread](),
		processes: newIDIndex[*Process](),
		pgroups:   newIDIndex[*PGroup](),
		sessions:  newIDIndex[*Session](),
		cpus:      make([]CPU, cfg.NumCPUs),
		rng:       rand.New(rand.NewSource(c.Seed)),
		vm:        c.VM,
		sem:       c.Sem,
		timer:     c.Timer,
		intr:      c.Interrupt,
		smp:       c.SMP,
		ioctx:     c.IOContext,
		elf:       c.ELF,
		ports:     c.Ports,
		arch:      c.Arch,
	}
	k.processMu.order = newLockOrder()

	k.runQueues = make([]ilist.List[*Thread], cfg.MaxPriority+1)
	for i := range k.runQueues {
		k.runQueues[i] = ilist.NewList(func(t *Thread) *ilist.Entry[*Thread] { return &t.runEntry })
	}
	k.dead = ilist.NewList(func(t *Thread) *ilist.Entry[*Thread] { return &t.runEntry })

	k.deathStacks = newDeathStackPool(cfg.NumDeathStacks)

	kp := newProcess(k.allocProcessID(), "kernel")
	kp.Parent = kp
	kp.State = ProcNormal
	k.processes.put(int64(kp.ID), kp)
	k.joinPGroupLocked(kp, PGID(kp.ID))
	k.joinSessionLocked(kp, SID(kp.ID))
	k.kernelProcess = kp

	for i := range k.cpus {
		k.cpus[i].ID = CPUID(i)
		idle := newThread(k.allocThreadID(), "idle", idlePriority)
		idle.Kernel = true
		idle.State = StateRunning
		idle.Process = kp
		idle.CPU = &k.cpus[i]
		kp.Threads.PushBack(idle)
		kp.NumThreads++
		k.threads.put(int64(idle.ID), idle)
		k.cpus[i].Idle = idle
		k.cpus[i].Current = idle
	}

	klog.Infof("kernel: booted with %d CPUs, %d death stacks", cfg.NumCPUs, cfg.NumDeathStacks)
	return k
}

// KernelProcess returns the self-parenting root process that adopts
// every orphan (every process's parent is non-null; only the kernel
// process is its own parent).
func (k *Kernel) KernelProcess() *Process {
	return k.kernelProcess
}

// CPU returns the CPU record named id, for callers outside this
// package that drive the dispatch loop themselves (the interrupt tail
// that normally calls Dispatch is an external collaborator).
func (k *Kernel) CPU(id CPUID) *CPU {
	return &k.cpus[id]
}

// NumCPUs returns the number of CPU records the Kernel was booted
// with.
func (k *Kernel) NumCPUs() int {
	return len(k.cpus)
}

func (k *Kernel) allocThreadID() ThreadID {
	return ThreadID(atomic.AddInt64(&k.nextThreadID, 1))
}

func (k *Kernel) allocProcessID() ProcessID {
	return ProcessID(atomic.AddInt64(&k.nextProcessID, 1))
}

// clampPriority enforces this package's "priority clamping on entry
// [0, MAX]".
func (k *Kernel) clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > k.cfg.MaxPriority {
		return k.cfg.MaxPriority
	}
	return p
}
