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
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/coreruntime/novakernel/pkg/ilist"
)

// ProcessID is a unique, monotonically assigned process identifier.
type ProcessID int64

// PGID identifies a process group; it equals the ProcessID of the
// group's founder.
type PGID int64

// SID identifies a session; it equals the ProcessID of the session's
// founder.
type SID int64

// ProcessState is one of the three lifecycle states a process can be in.
type ProcessState int

const (
	ProcBirth ProcessState = iota
	ProcNormal
	ProcDeath
)

func (s ProcessState) String() string {
	switch s {
	case ProcBirth:
		return "BIRTH"
	case ProcNormal:
		return "NORMAL"
	case ProcDeath:
		return "DEATH"
	default:
		return "UNKNOWN"
	}
}

// CreateFlags modify process creation (a child's sid equals its
// creator's sid unless FlagNewSession was set; FlagNewSession implies
// FlagNewPGroup).
type CreateFlags int

const (
	FlagSuspended CreateFlags = 1 << iota
	FlagNewSession
	FlagNewPGroup
)

// ProcessCreateArgs is the argument to Kernel.CreateProcess. Proc
// embeds the OCI process shape (argv/env/cwd/user), grounded on the
// teacher's own CreateProcessArgs (runsc/boot/loader.go:
// "procArgs kernel.CreateProcessArgs", built from a *specs.Spec), since
// reusing the OCI vocabulary for "the argv/env/cwd of a thing about to
// be exec'd" avoids inventing a parallel struct for the same shape.
type ProcessCreateArgs struct {
	Path   string
	Name   string
	Proc   *specs.Process
	Flags  CreateFlags
	Parent *Process // creator; nil only for the kernel process itself
}

// Process is the address-space-and-resource container.
type Process struct {
	ID    ProcessID
	Name  string
	State ProcessState

	Parent   *Process
	Children ilist.List[*Process] // this process's children
	siblingEntry ilist.Entry[*Process]

	Threads    ilist.List[*Thread]
	MainThread *Thread
	NumThreads int

	PGID PGID
	SID  SID

	pgroupEntry ilist.Entry[*Process]
	sessionEntry ilist.Entry[*Process]

	AddressSpace AddressSpace
	IOCtx        IOContext

	Argv []string
	Env  []string
	Cwd  string
}

func newProcess(id ProcessID, name string) *Process {
	p := &Process{
		ID:    id,
		Name:  truncateName(name),
		State: ProcBirth,
	}
	p.Children = ilist.NewList(func(c *Process) *ilist.Entry[*Process] { return &c.siblingEntry })
	p.Threads = ilist.NewList(func(t *Thread) *ilist.Entry[*Thread] { return &t.procEntry })
	return p
}
