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

import "time"

// quantum is the fixed scheduler quantum named in this package's
// default; cfg.QuantumMillis lets nkconfig override it.
func (k *Kernel) quantum() time.Duration {
	return time.Duration(k.cfg.QuantumMillis) * time.Millisecond
}

// Dispatch runs the priority-band selection algorithm on cpu and
// context-switches into the result. It must be called with threadMu
// held and interrupts already disabled by the caller: the interrupt
// collaborator's Disable/Restore bracket belongs to the caller.
func (k *Kernel) Dispatch(cpu *CPU) {
	next := k.selectNextLocked(cpu)
	k.switchTo(cpu, next)
}

// switchTo performs the time accounting and architecture context
// switch, and arms the next quantum timer. It does not update the FPU
// ownership fields (FPUOwner, FPUSaved); only finishExit clears them.
// Callers must hold threadMu.
func (k *Kernel) switchTo(cpu *CPU, next *Thread) {
	now := time.Now()
	prev := cpu.Current

	if prev != nil {
		k.creditTime(prev, now)
		prev.CPU = nil
	}

	next.CPU = cpu
	next.LastTime = now
	next.State = StateRunning
	cpu.Current = next

	var newAS AddressSpace
	if next.Process != nil {
		newAS = next.Process.AddressSpace
	}
	if k.arch != nil {
		k.arch.ContextSwitch(prev, next, newAS)
	}

	if k.timer != nil && cpu.quantumTimer != 0 && !cpu.rescheduled {
		k.timer.Cancel(cpu.quantumTimer)
	}
	cpu.rescheduled = false
	if k.timer != nil {
		cpu.quantumTimer = k.timer.ArmOneShot(cpu.ID, k.quantum(), func() RescheduleDecision {
			return k.QuantumExpired(cpu)
		})
	}
}

// creditTime credits prev's currently-accruing bucket with the elapsed
// time since its last_time.
func (k *Kernel) creditTime(prev *Thread, now time.Time) {
	elapsed := now.Sub(prev.LastTime)
	if elapsed < 0 {
		elapsed = 0
	}
	switch prev.CurrentBucket {
	case BucketUser:
		prev.UserTime += elapsed
	default:
		prev.KernelTime += elapsed
	}
	prev.LastTime = now
}

// QuantumExpired is the callback the Timer collaborator invokes when
// cpu's quantum fires ("when the callback returns an
// INT_RESCHEDULE sentinel, the interrupt tail calls the dispatcher").
// If the current thread has already been preempted and rescheduled
// through some other path, the stale timer firing is a no-op: if the
// current thread was preempted (timer already fired) the old event is
// not re-cancelled.
func (k *Kernel) QuantumExpired(cpu *CPU) RescheduleDecision {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	if cpu.rescheduled {
		return NoReschedule
	}
	cpu.rescheduled = true
	if cur := cpu.Current; cur != nil && cur != cpu.Idle {
		k.enqueueLocked(cur)
	}
	return Reschedule
}

// Yield voluntarily gives up the CPU: the current thread is put back
// at the tail of its priority's run queue and the dispatcher is
// invoked.
func (k *Kernel) Yield(cpu *CPU) {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	if cur := cpu.Current; cur != nil && cur != cpu.Idle {
		k.enqueueLocked(cur)
	}
	k.Dispatch(cpu)
}

// Wake moves t from WAITING to READY and enqueues it
// ("WAITING → READY on wakeup").
func (k *Kernel) Wake(t *Thread) {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	if t.State != StateWaiting {
		return
	}
	k.enqueueLocked(t)
}

// EnterKernel implements thread_atkernel_entry: credit
// user time, flip the in-kernel flag, update last_time.
func (k *Kernel) EnterKernel(t *Thread) {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	now := time.Now()
	k.creditTime(t, now)
	t.InKernel = true
	t.CurrentBucket = BucketKernel
}

// ExitKernel implements thread_atkernel_exit: credit
// kernel time and flip the in-kernel flag back; pending-signal handling
// that may reschedule is the caller's responsibility (it owns the
// interrupt frame this returns into).
func (k *Kernel) ExitKernel(t *Thread) {
	k.threadMu.Lock()
	defer k.threadMu.Unlock()
	now := time.Now()
	k.creditTime(t, now)
	t.InKernel = false
	t.CurrentBucket = BucketUser
}
