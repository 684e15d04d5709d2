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

	"github.com/mohae/deepcopy"

	"github.com/coreruntime/novakernel/pkg/errdefs"
)

// CreateProcess implements this package's Create path: allocate a
// BIRTH-state process record, link it into the creator's children and
// the session/pgroup tables, then — outside the process lock — clone
// resources and spawn the launch thread.
func (k *Kernel) CreateProcess(ctx context.Context, args ProcessCreateArgs) (*Process, error) {
	if args.Parent == nil {
		return nil, errdefs.ErrInvalidArgs
	}

	proc := newProcess(k.allocProcessID(), args.Name)
	proc.Parent = args.Parent

	// Pre-allocate pgroup/session nodes outside the lock: allocation
	// cannot happen while the process lock is held ("optionally
	// pre-allocate pgroup/session nodes because allocation cannot happen
	// under the process lock").
	var newSessionNode *Session
	var newPGroupNode *PGroup
	if args.Flags&FlagNewSession != 0 {
		newSessionNode = newSession(SID(proc.ID))
		newPGroupNode = newPGroup(PGID(proc.ID))
	} else if args.Flags&FlagNewPGroup != 0 {
		newPGroupNode = newPGroup(PGID(proc.ID))
	}

	k.processMu.Lock()
	k.processes.put(int64(proc.ID), proc)
	args.Parent.Children.PushBack(proc)

	switch {
	case newSessionNode != nil:
		k.sessions.put(int64(newSessionNode.ID), newSessionNode)
		newSessionNode.Members.PushBack(proc)
		proc.SID = newSessionNode.ID
		k.pgroups.put(int64(newPGroupNode.ID), newPGroupNode)
		newPGroupNode.Members.PushBack(proc)
		proc.PGID = newPGroupNode.ID
	case newPGroupNode != nil:
		proc.SID = args.Parent.SID
		if s, ok := k.sessions.get(int64(proc.SID)); ok {
			s.Members.PushBack(proc)
		}
		k.pgroups.put(int64(newPGroupNode.ID), newPGroupNode)
		newPGroupNode.Members.PushBack(proc)
		proc.PGID = newPGroupNode.ID
	default:
		proc.SID = args.Parent.SID
		proc.PGID = args.Parent.PGID
		if s, ok := k.sessions.get(int64(proc.SID)); ok {
			s.Members.PushBack(proc)
		}
		if g, ok := k.pgroups.get(int64(proc.PGID)); ok {
			g.Members.PushBack(proc)
		}
	}
	k.processMu.Unlock()

	// Outside the lock: duplicate argv, clone the I/O context, create
	// the address space, spawn the launch thread.
	if args.Proc != nil {
		proc.Argv = append([]string(nil), args.Proc.Args...)
		proc.Env = append([]string(nil), args.Proc.Env...)
		proc.Cwd = args.Proc.Cwd
	}

	if k.ioctx != nil {
		var parentCtx IOContext
		if args.Parent.IOCtx != nil {
			// deepcopy.Copy clones the parent's I/O context value the
			// way gVisor's boot process clones OCI spec structs
			// wholesale before mutating a per-container copy
			// (runsc/boot: specutils clones *specs.Spec before editing
			// fields); here it stands in for "create, optionally cloned
			// from a parent" when the factory itself wants a ready-made
			// value rather than building one from scratch.
			parentCtx = deepcopy.Copy(args.Parent.IOCtx).(IOContext)
		}
		ioCtx, err := k.ioctx.Create(parentCtx)
		if err != nil {
			k.unwindProcessCreate(proc)
			return nil, err
		}
		proc.IOCtx = ioCtx
	}

	if k.vm != nil {
		as, err := k.vm.CreateAddressSpace()
		if err != nil {
			k.unwindProcessCreate(proc)
			return nil, err
		}
		proc.AddressSpace = as
	}

	launch, err := k.CreateThread(ctx, CreateThreadArgs{
		Name:     proc.Name + "-launch",
		Priority: k.cfg.MaxUserPriority,
		Process:  proc,
		Kernel:   true,
		Entry:    func(arg any) { k.launchProcess(ctx, arg.(*Process), args.Path) },
		Arg:      proc,
	})
	if err != nil {
		k.unwindProcessCreate(proc)
		return nil, err
	}

	if args.Flags&FlagSuspended == 0 {
		k.Resume(launch)
	}

	return proc, nil
}

// launchProcess is the internal launch entry: map a user stack
// (handled by CreateThread's non-kernel path in a fuller
// implementation), invoke the ELF loader, transition to NORMAL, and
// jump to user space. Here the launch thread was created with Kernel:
// true since the user stack is mapped by the loader itself once the
// entry point is known.
func (k *Kernel) launchProcess(ctx context.Context, proc *Process, path string) {
	var entry uintptr
	var err error
	if k.elf != nil {
		entry, err = k.elf.Load(proc.AddressSpace, path)
		if err != nil {
			k.processMu.Lock()
			proc.State = ProcDeath
			k.processMu.Unlock()
			return
		}
	}

	k.processMu.Lock()
	proc.State = ProcNormal
	k.processMu.Unlock()

	if k.arch != nil && proc.MainThread != nil {
		proc.MainThread.ArchState = k.arch.InitThreadState(nil, nil, uintptr(entry))
		k.arch.EnterUserMode(proc.MainThread)
	}
}

// unwindProcessCreate reverses CreateProcess's partial state on
// failure: on any failure, unwind in reverse, removing the record
// from every index it was inserted into.
func (k *Kernel) unwindProcessCreate(proc *Process) {
	k.processMu.Lock()
	defer k.processMu.Unlock()

	k.leavePGroupLocked(proc)
	k.leaveSessionLocked(proc)
	if proc.Parent != nil {
		proc.Parent.Children.Remove(proc)
	}
	k.processes.delete(int64(proc.ID))

	if proc.AddressSpace != nil && k.vm != nil {
		k.vm.DeleteAddressSpace(proc.AddressSpace)
	}
	if proc.IOCtx != nil && k.ioctx != nil {
		k.ioctx.Free(proc.IOCtx)
	}
}
