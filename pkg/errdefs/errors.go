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

// Package errdefs holds the flat, negative-sentinel error taxonomy
// that every user-facing kernel operation returns, in the same
// compare-by-identity style as gVisor's linuxerr package
// (linuxerr.EINVAL, linuxerr.ESRCH, used directly as error values).
package errdefs

import "errors"

// Code is a kernel error sentinel. The zero value is not a valid
// error; use the exported Err* variables.
type Code struct {
	name  string
	value int
}

// Error implements error.
func (c *Code) Error() string {
	return c.name
}

// Value returns the negative integer a user-facing syscall-style API
// should surface for this error.
func (c *Code) Value() int {
	return c.value
}

func newCode(name string, value int) *Code {
	return &Code{name: name, value: value}
}

// The flat error taxonomy . Values are assigned in
// declaration order starting at -1; they have no meaning outside this
// module (there is no real syscall ABI to match here, unlike the
// teacher's linuxerr which mirrors the Linux errno table).
var (
	ErrNoMemory        = newCode("NO_MEMORY", -1)
	ErrInvalidArgs     = newCode("INVALID_ARGS", -2)
	ErrInvalidHandle   = newCode("INVALID_HANDLE", -3)
	ErrNotFound        = newCode("NOT_FOUND", -4)
	ErrNoMoreHandles   = newCode("NO_MORE_HANDLES", -5)
	ErrTaskProcDeleted = newCode("TASK_PROC_DELETED", -6)
	ErrVMBadUserMemory = newCode("VM_BAD_USER_MEMORY", -7)
	ErrNetNoRoute      = newCode("NET_NO_ROUTE", -8)
	ErrNetBadPacket    = newCode("NET_BAD_PACKET", -9)
	ErrSemDeleted      = newCode("SEM_DELETED", -10)
	ErrInterruptedWait = newCode("INTERRUPTED_WAIT", -11)
)

// Is reports whether err is the given sentinel. Sentinels are
// singletons so == would also work, but Is plays nicer with wrapped
// errors returned across package boundaries.
func Is(err error, code *Code) bool {
	var c *Code
	return errors.As(err, &c) && c == code
}
