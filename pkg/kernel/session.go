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

// Session is a collection of process groups sharing a controlling
// terminal, identified by the ProcessID of its founder.
type Session struct {
	ID      SID
	Members ilist.List[*Process]
}

func newSession(id SID) *Session {
	s := &Session{ID: id}
	s.Members = ilist.NewList(func(p *Process) *ilist.Entry[*Process] { return &p.sessionEntry })
	return s
}

// sessionLocked looks up the session named sid. Callers must hold
// processMu.
func (k *Kernel) sessionLocked(sid SID) (*Session, bool) {
	return k.sessions.get(int64(sid))
}

// joinSessionLocked adds p to the session named sid, creating it if it
// does not already exist. Callers must hold processMu.
func (k *Kernel) joinSessionLocked(p *Process, sid SID) {
	s, ok := k.sessions.get(int64(sid))
	if !ok {
		s = newSession(sid)
		k.sessions.put(int64(sid), s)
	}
	s.Members.PushBack(p)
	p.SID = sid
}

// leaveSessionLocked removes p from its current session, deleting the
// session's index entry if it becomes empty. Callers must hold
// processMu.
func (k *Kernel) leaveSessionLocked(p *Process) {
	s, ok := k.sessions.get(int64(p.SID))
	if !ok {
		return
	}
	s.Members.Remove(p)
	if s.Members.Empty() {
		k.sessions.delete(int64(p.SID))
	}
}

// SetSID implements setsid(2): the caller becomes the founder of a
// brand-new session and a brand-new process group within it. Calling
// it again once already a session/group founder is a no-op that
// returns the existing sid ("setsid() called twice in the
// same process: first returns new sid, second is a no-op returning the
// same sid").
func (k *Kernel) SetSID(caller *Process) (SID, error) {
	k.processMu.Lock()
	defer k.processMu.Unlock()

	if caller.SID == SID(caller.ID) && caller.PGID == PGID(caller.ID) {
		return caller.SID, nil
	}

	k.leavePGroupLocked(caller)
	k.leaveSessionLocked(caller)

	sid := SID(caller.ID)
	pgid := PGID(caller.ID)
	k.joinSessionLocked(caller, sid)
	k.joinPGroupLocked(caller, pgid)
	return sid, nil
}

// GetSID returns the session id of pid.
func (k *Kernel) GetSID(pid ProcessID) (SID, error) {
	k.processMu.Lock()
	defer k.processMu.Unlock()
	p, ok := k.processes.get(int64(pid))
	if !ok {
		return 0, errdefs.ErrInvalidHandle
	}
	return p.SID, nil
}
