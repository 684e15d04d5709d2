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

import "testing"

// TestSetPGIDGetPGIDRoundTrip is this package's round-trip property:
// setpgid(pid, g); getpgid(pid) == g.
func TestSetPGIDGetPGIDRoundTrip(t *testing.T) {
	k := newTestKernel(t)
	p := k.newTestProcess("p", nil)

	if err := k.SetPGID(p, p.ID, PGID(999)); err != nil {
		t.Fatalf("SetPGID: %v", err)
	}
	got, err := k.GetPGID(p.ID)
	if err != nil {
		t.Fatalf("GetPGID: %v", err)
	}
	if got != 999 {
		t.Fatalf("GetPGID: got %d, want 999", got)
	}
}

// TestSetSIDTwiceIsIdempotentSecondCall is this package's round-trip
// property: setsid() called twice in the same process: first returns
// a new sid, second is a no-op returning the same sid.
func TestSetSIDTwiceIsIdempotentSecondCall(t *testing.T) {
	k := newTestKernel(t)
	p := k.newTestProcess("p", nil)

	first, err := k.SetSID(p)
	if err != nil {
		t.Fatalf("first SetSID: %v", err)
	}

	second, err := k.SetSID(p)
	if err != nil {
		t.Fatalf("second SetSID: %v", err)
	}
	if second != first {
		t.Fatalf("second SetSID: got %d, want no-op returning %d", second, first)
	}

	got, err := k.GetSID(p.ID)
	if err != nil {
		t.Fatalf("GetSID: %v", err)
	}
	if got != first {
		t.Fatalf("sid mismatch: got %d, want %d", got, first)
	}
}

// TestCheckForPgrpConnection exercises this package's orphan test
// directly: a group is connected iff some member other than the
// ignored one has a parent in the reference group.
func TestCheckForPgrpConnection(t *testing.T) {
	k := newTestKernel(t)
	parent := k.newTestProcess("parent", nil)
	child := k.newTestProcess("child", parent)

	k.processMu.Lock()
	connected := k.checkForPgrpConnection(child.PGID, parent.PGID, child)
	k.processMu.Unlock()
	if !connected {
		t.Fatalf("child sharing parent's pgroup-connected lineage should be connected")
	}

	if err := k.SetPGID(child, child.ID, PGID(child.ID)); err != nil {
		t.Fatalf("SetPGID: %v", err)
	}
	k.processMu.Lock()
	connected = k.checkForPgrpConnection(child.PGID, parent.PGID, child)
	k.processMu.Unlock()
	if connected {
		t.Fatalf("child now in its own pgroup with no other connected member should not be connected")
	}
}
