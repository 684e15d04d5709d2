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

	"github.com/coreruntime/novakernel/pkg/errdefs"
)

// ProcessInfo is a point-in-time snapshot returned by GetProcessInfo,
// safe to read without holding any Kernel lock.
type ProcessInfo struct {
	ID         ProcessID
	Name       string
	State      ProcessState
	ParentID   ProcessID
	PGID       PGID
	SID        SID
	NumThreads int
}

// KillProcess targets the process's main thread: Kill targets the
// main thread, and the exit path handles everything else.
func (k *Kernel) KillProcess(ctx context.Context, p *Process, sync bool) error {
	k.processMu.Lock()
	main := p.MainThread
	k.processMu.Unlock()
	if main == nil {
		return errdefs.ErrInvalidHandle
	}
	_, err := k.Kill(ctx, main, sync)
	return err
}

// WaitProcess waits for p's main thread to exit and returns its exit
// code.
func (k *Kernel) WaitProcess(ctx context.Context, p *Process) (int32, error) {
	k.processMu.Lock()
	main := p.MainThread
	k.processMu.Unlock()
	if main == nil {
		return 0, errdefs.ErrInvalidHandle
	}
	return k.Wait(ctx, main)
}

// GetProcessInfo returns a snapshot of pid's process record.
func (k *Kernel) GetProcessInfo(pid ProcessID) (ProcessInfo, error) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	p, ok := k.processes.get(int64(pid))
	if !ok {
		return ProcessInfo{}, errdefs.ErrInvalidHandle
	}
	var parentID ProcessID
	if p.Parent != nil {
		parentID = p.Parent.ID
	}
	return ProcessInfo{
		ID:         p.ID,
		Name:       p.Name,
		State:      p.State,
		ParentID:   parentID,
		PGID:       p.PGID,
		SID:        p.SID,
		NumThreads: p.NumThreads,
	}, nil
}

// IterateProcesses calls f with every live process id in ascending
// order, stopping early if f returns false. NO_MORE_HANDLES is the
// error a cursor-based caller (e.g. a `ps` CLI walking a page at a
// time) sees once it has exhausted the index.
func (k *Kernel) IterateProcesses(f func(ProcessInfo) bool) {
	k.processMu.Lock()
	var snapshot []ProcessInfo
	k.processes.ascend(func(_ int64, p *Process) bool {
		var parentID ProcessID
		if p.Parent != nil {
			parentID = p.Parent.ID
		}
		snapshot = append(snapshot, ProcessInfo{
			ID:         p.ID,
			Name:       p.Name,
			State:      p.State,
			ParentID:   parentID,
			PGID:       p.PGID,
			SID:        p.SID,
			NumThreads: p.NumThreads,
		})
		return true
	})
	k.processMu.Unlock()

	for _, info := range snapshot {
		if !f(info) {
			return
		}
	}
}

// NextProcess implements a NO_MORE_HANDLES-returning cursor variant of
// IterateProcesses, for callers that want one record at a time rather
// than a callback.
func (k *Kernel) NextProcess(after ProcessID) (ProcessInfo, error) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	var found *Process
	k.processes.ascend(func(key int64, p *Process) bool {
		if key > int64(after) {
			found = p
			return false
		}
		return true
	})
	if found == nil {
		return ProcessInfo{}, errdefs.ErrNoMoreHandles
	}
	var parentID ProcessID
	if found.Parent != nil {
		parentID = found.Parent.ID
	}
	return ProcessInfo{
		ID:         found.ID,
		Name:       found.Name,
		State:      found.State,
		ParentID:   parentID,
		PGID:       found.PGID,
		SID:        found.SID,
		NumThreads: found.NumThreads,
	}, nil
}

// SignalProcessGroup is the exposed group-directed signal fan-out.
func (k *Kernel) SignalProcessGroup(pgid PGID, sig SignalNum) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	k.signalPGroupLocked(pgid, sig)
}

// SignalSession delivers sig to the main thread of every member of
// every process group in sid's session.
func (k *Kernel) SignalSession(sid SID, sig SignalNum) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	s, ok := k.sessions.get(int64(sid))
	if !ok {
		return
	}
	s.Members.Each(func(p *Process) {
		if p.MainThread != nil {
			k.deliverSignalNoResched(p.MainThread, sig)
		}
	})
}
