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

// idlePriority is the reserved, never-enqueued priority level of each
// CPU's idle thread: the regular band sits above this idle-only
// priority.
const idlePriority = 0

// isRT reports whether priority p falls in the real-time band, split
// above the regular band which itself sits above an idle-only
// priority.
func (k *Kernel) isRT(p int) bool {
	return p >= k.cfg.MaxRTPriority
}

// enqueueLocked puts t on the run queue for its priority, tail-insert
// so ties within a level are broken FIFO. Callers must hold threadMu.
func (k *Kernel) enqueueLocked(t *Thread) {
	t.State = StateReady
	k.runQueues[t.Priority].PushBack(t)
}

// dequeueLocked removes t from whatever run queue it is currently on.
// Callers must hold threadMu.
func (k *Kernel) dequeueLocked(t *Thread) {
	k.runQueues[t.Priority].Remove(t)
}

// setPriorityLocked implements "a priority change on a
// READY thread dequeues and re-enqueues it." Callers must hold
// threadMu.
func (k *Kernel) setPriorityLocked(t *Thread, priority int) {
	priority = k.clampPriority(priority)
	if t.Priority == priority {
		return
	}
	if t.State == StateReady {
		k.dequeueLocked(t)
		t.Priority = priority
		k.enqueueLocked(t)
		return
	}
	t.Priority = priority
}

// selectNextLocked implements the priority-band selection algorithm.
// Callers must hold threadMu and have interrupts disabled.
func (k *Kernel) selectNextLocked(cpu *CPU) *Thread {
	for p := k.cfg.MaxPriority; p >= k.cfg.MaxRTPriority; p-- {
		if !k.runQueues[p].Empty() {
			t := k.runQueues[p].PopFront()
			return t
		}
	}

	fallback := -1
	for p := k.cfg.MaxRTPriority - 1; p > idlePriority; p-- {
		if k.runQueues[p].Empty() {
			continue
		}
		if fallback == -1 {
			fallback = p
		}
		// probability ~5/8: pick immediately unless the draw lands in
		// the remaining 3/8, in which case remember this level and
		// keep scanning lower levels (this package's weak-aging skip).
		if k.rng.Intn(8) < 5 {
			return k.runQueues[p].PopFront()
		}
	}
	if fallback != -1 {
		return k.runQueues[fallback].PopFront()
	}

	return cpu.Idle
}
