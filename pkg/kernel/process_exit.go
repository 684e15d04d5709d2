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

	"github.com/coreruntime/novakernel/pkg/klog"
)

// exitProcess implements the process half of thread teardown, plus
// reparenting children: proc's main thread has already exited, so
// every remaining thread is signal-killed and we poll until they
// are gone, then the process record itself is torn down under the
// process lock. It returns proc's parent, to whom the caller (Exit)
// sends SIGCHLD.
func (k *Kernel) exitProcess(ctx context.Context, proc *Process) *Process {
	k.processMu.Lock()
	proc.State = ProcDeath
	remaining := proc.NumThreads
	k.processMu.Unlock()
	klog.ForProcess(int64(proc.ID)).Debugf("entering DEATH, reaping %d remaining threads", remaining)

	k.killRemainingSiblings(proc)
	k.waitForSiblingsToExit(proc)

	k.processMu.Lock()
	defer k.processMu.Unlock()

	orphaned := proc.PGID != proc.Parent.PGID && proc.SID == proc.Parent.SID &&
		!k.checkForPgrpConnection(proc.PGID, proc.Parent.PGID, proc)
	pgid := proc.PGID

	k.processes.delete(int64(proc.ID))
	k.reparentChildrenLocked(proc)
	k.leavePGroupLocked(proc)
	k.leaveSessionLocked(proc)

	parent := proc.Parent
	proc.Parent = nil

	if k.ports != nil {
		k.ports.ReleaseAllOwnedBy(proc.ID)
	}
	if proc.AddressSpace != nil && k.vm != nil {
		k.vm.DeleteAddressSpace(proc.AddressSpace)
	}
	if proc.IOCtx != nil && k.ioctx != nil {
		k.ioctx.Free(proc.IOCtx)
	}

	if orphaned {
		k.signalPGroupLocked(pgid, SigHup)
		k.signalPGroupLocked(pgid, SigCont)
	}

	return parent
}

// killRemainingSiblings sends SIGKILLTHR to every thread still
// attached to proc other than the (already-exiting) main thread.
func (k *Kernel) killRemainingSiblings(proc *Process) {
	k.processMu.Lock()
	var victims []*Thread
	proc.Threads.Each(func(t *Thread) {
		if t != proc.MainThread {
			victims = append(victims, t)
		}
	})
	k.processMu.Unlock()

	for _, t := range victims {
		k.signalThread(t, SigKillThr)
	}
}

// reparentChildrenLocked implements this package's "reparent
// children": each child of proc is detached and attached to proc's
// parent; if the move orphans the child's pgroup, SIGHUP then SIGCONT
// is delivered to it. Callers must hold processMu.
//
// The orphan check is run for every child against the pre-reparenting
// state before any Parent pointer is mutated: if two children share a
// pgroup, reassigning the first child's Parent before checking the
// second's orphan status would make the second look orphaned (its
// sibling no longer appears connected through the old parent) even
// though both are moving together. Collecting every verdict first,
// then mutating Parent pointers, keeps the check order-independent.
func (k *Kernel) reparentChildrenLocked(proc *Process) {
	newParent := proc.Parent
	if newParent == nil {
		newParent = k.kernelProcess
	}

	var children []*Process
	proc.Children.Each(func(c *Process) { children = append(children, c) })

	orphaned := make([]bool, len(children))
	for i, c := range children {
		orphaned[i] = c.PGID != proc.PGID && !k.checkForPgrpConnection(c.PGID, proc.PGID, c)
	}

	for _, c := range children {
		proc.Children.Remove(c)
		c.Parent = newParent
		newParent.Children.PushBack(c)
	}

	for i, c := range children {
		if orphaned[i] {
			k.signalPGroupLocked(c.PGID, SigHup)
			k.signalPGroupLocked(c.PGID, SigCont)
		}
	}
}
