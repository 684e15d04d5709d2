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

package errdefs

import "testing"

func TestSentinelsAreDistinctAndNegative(t *testing.T) {
	all := []*Code{
		ErrNoMemory, ErrInvalidArgs, ErrInvalidHandle, ErrNotFound,
		ErrNoMoreHandles, ErrTaskProcDeleted, ErrVMBadUserMemory,
		ErrNetNoRoute, ErrNetBadPacket, ErrSemDeleted, ErrInterruptedWait,
	}
	seen := map[int]bool{}
	for _, c := range all {
		if c.Value() >= 0 {
			t.Fatalf("%s: value %d is not negative", c.Error(), c.Value())
		}
		if seen[c.Value()] {
			t.Fatalf("%s: duplicate value %d", c.Error(), c.Value())
		}
		seen[c.Value()] = true
	}
}

func TestIs(t *testing.T) {
	var err error = ErrTaskProcDeleted
	if !Is(err, ErrTaskProcDeleted) {
		t.Fatalf("Is() should match identical sentinel")
	}
	if Is(err, ErrNotFound) {
		t.Fatalf("Is() matched a different sentinel")
	}
	if Is(nil, ErrNotFound) {
		t.Fatalf("Is(nil, ...) should be false")
	}
}
