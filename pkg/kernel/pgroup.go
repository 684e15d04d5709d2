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
	"github.com/coreruntime/novakernel/pkg/errdefs"
	"github.com/coreruntime/novakernel/pkg/ilist"
)

// PGroup is a process group: a doubly-linked list of member processes,
// identified by the ProcessID of its founder.
type PGroup struct {
	ID      PGID
	Members ilist.List[*Process]
}

func newPGroup(id PGID) *PGroup {
	g := &PGroup{ID: id}
	g.Members = ilist.NewList(func(p *Process) *ilist.Entry[*Process] { return &p.pgroupEntry })
	return g
}

// pgroupLocked looks up the group named pgid. Callers must hold
// processMu.
func (k *Kernel) pgroupLocked(pgid PGID) (*PGroup, bool) {
	return k.pgroups.get(int64(pgid))
}

// joinPGroupLocked adds p to the group named pgid, creating the group
// if it does not already exist. Callers must hold processMu.
func (k *Kernel) joinPGroupLocked(p *Process, pgid PGID) {
	g, ok := k.pgroups.get(int64(pgid))
	if !ok {
		g = newPGroup(pgid)
		k.pgroups.put(int64(pgid), g)
	}
	g.Members.PushBack(p)
	p.PGID = pgid
}

// leavePGroupLocked removes p from its current group, deleting the
// group's index entry if it becomes empty. Callers must hold
// processMu.
func (k *Kernel) leavePGroupLocked(p *Process) {
	g, ok := k.pgroups.get(int64(p.PGID))
	if !ok {
		return
	}
	g.Members.Remove(p)
	if g.Members.Empty() {
		k.pgroups.delete(int64(p.PGID))
	}
}

// checkForPgrpConnection implements this package's orphan test: the
// group named pgid is NOT orphaned if any member other than ignore has
// a parent whose pgid is parentPGID. Callers must hold processMu.
func (k *Kernel) checkForPgrpConnection(pgid, parentPGID PGID, ignore *Process) bool {
	g, ok := k.pgroups.get(int64(pgid))
	if !ok {
		return false
	}
	connected := false
	g.Members.Each(func(p *Process) {
		if p == ignore {
			return
		}
		if p.Parent != nil && p.Parent.PGID == parentPGID {
			connected = true
		}
	})
	return connected
}

// signalPGroupLocked delivers sig to every member's main thread with
// NoResched set, so the sender performs at most one reschedule at the
// end. Callers must hold processMu. The single reschedule the caller
// owes after a multi-target fan-out is the caller's responsibility,
// not this function's.
func (k *Kernel) signalPGroupLocked(pgid PGID, sig SignalNum) {
	g, ok := k.pgroups.get(int64(pgid))
	if !ok {
		return
	}
	g.Members.Each(func(p *Process) {
		if p.MainThread != nil {
			k.deliverSignalNoResched(p.MainThread, sig)
		}
	})
}

// SetPGID implements setpgid(2) semantics: pid==0 means the caller,
// pgid==0 means pid. If the target group does
// not exist, the node is allocated outside the process lock (creation
// may block), then published only if nobody raced us.
func (k *Kernel) SetPGID(caller *Process, pid ProcessID, pgid PGID) error {
	if pid == 0 {
		pid = caller.ID
	}

	k.processMu.Lock()
	target, ok := k.processes.get(int64(pid))
	if !ok || target.State == ProcDeath {
		k.processMu.Unlock()
		return errdefs.ErrInvalidHandle
	}
	if pgid == 0 {
		pgid = PGID(pid)
	}
	existing, exists := k.pgroups.get(int64(pgid))
	if exists {
		k.leavePGroupLocked(target)
		existing.Members.PushBack(target)
		target.PGID = pgid
		k.processMu.Unlock()
		return nil
	}
	k.processMu.Unlock()

	// Allocate the new group node outside the lock: construction may
	// block in a fuller implementation, so we must not hold processMu
	// here.
	candidate := newPGroup(pgid)

	k.processMu.Lock()
	defer k.processMu.Unlock()
	// Re-check: someone may have created the same group while we were
	// unlocked. If so, discard our candidate and use theirs.
	if existing, exists := k.pgroups.get(int64(pgid)); exists {
		k.leavePGroupLocked(target)
		existing.Members.PushBack(target)
		target.PGID = pgid
		return nil
	}
	k.leavePGroupLocked(target)
	k.pgroups.put(int64(pgid), candidate)
	candidate.Members.PushBack(target)
	target.PGID = pgid
	return nil
}

// GetPGID returns the process group id of pid.
func (k *Kernel) GetPGID(pid ProcessID) (PGID, error) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	p, ok := k.processes.get(int64(pid))
	if !ok {
		return 0, errdefs.ErrInvalidHandle
	}
	return p.PGID, nil
}
