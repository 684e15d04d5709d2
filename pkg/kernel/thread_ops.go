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
	"time"

	"github.com/coreruntime/novakernel/pkg/errdefs"
)

// ThreadInfo is a point-in-time snapshot returned by GetThreadInfo.
type ThreadInfo struct {
	ID         ThreadID
	Name       string
	State      ThreadState
	Priority   int
	ProcessID  ProcessID
	UserTime   time.Duration
	KernelTime time.Duration
}

// Snooze blocks the calling thread for d, marking it WAITING and
// arming a one-shot alarm that wakes it: one of the suspension points
// alongside the quantum timer and blocking primitives, and one of the
// core's exposed thread operations ("suspend/resume/snooze/yield
// ... for threads").
func (k *Kernel) Snooze(ctx context.Context, t *Thread, d time.Duration) {
	k.threadMu.Lock()
	if t.State == StateReady {
		k.dequeueLocked(t)
	}
	t.State = StateWaiting
	k.threadMu.Unlock()

	done := make(chan struct{})
	if k.timer != nil {
		handle := k.timer.ArmAlarm(d, func() { close(done) })
		t.AlarmTimer = handle
	} else {
		close(done)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	k.threadMu.Lock()
	t.AlarmTimer = 0
	k.threadMu.Unlock()
	k.Wake(t)
}

// GetThreadInfo returns a snapshot of tid's thread record.
func (k *Kernel) GetThreadInfo(tid ThreadID) (ThreadInfo, error) {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	t, ok := k.threads.get(int64(tid))
	if !ok {
		return ThreadInfo{}, errdefs.ErrInvalidHandle
	}
	var pid ProcessID
	if t.Process != nil {
		pid = t.Process.ID
	}
	return ThreadInfo{
		ID:         t.ID,
		Name:       t.Name,
		State:      t.State,
		Priority:   t.Priority,
		ProcessID:  pid,
		UserTime:   t.UserTime,
		KernelTime: t.KernelTime,
	}, nil
}
