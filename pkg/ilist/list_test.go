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

package ilist

import "testing"

type elem struct {
	val int
	a   Entry[*elem]
	b   Entry[*elem]
}

func newElemList() List[*elem] {
	return NewList(func(e *elem) *Entry[*elem] { return &e.a })
}

func newElemListB() List[*elem] {
	return NewList(func(e *elem) *Entry[*elem] { return &e.b })
}

func TestPushBackOrder(t *testing.T) {
	l := newElemList()
	a, b, c := &elem{val: 1}, &elem{val: 2}, &elem{val: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	var got []int
	l.Each(func(e *elem) { got = append(got, e.val) })
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
}

func TestRemoveMiddle(t *testing.T) {
	l := newElemList()
	a, b, c := &elem{val: 1}, &elem{val: 2}, &elem{val: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)

	var got []int
	l.Each(func(e *elem) { got = append(got, e.val) })
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("got %v, want [1 3]", got)
	}
	if l.Front() != a || l.Back() != c {
		t.Fatalf("front/back broken after middle removal")
	}
}

func TestPopFrontEmpty(t *testing.T) {
	l := newElemList()
	if e := l.PopFront(); e != nil {
		t.Fatalf("PopFront on empty list returned %v", e)
	}
	if !l.Empty() {
		t.Fatalf("Empty() false on empty list")
	}
}

func TestPopFrontDrain(t *testing.T) {
	l := newElemList()
	a, b := &elem{val: 1}, &elem{val: 2}
	l.PushBack(a)
	l.PushBack(b)

	if got := l.PopFront(); got != a {
		t.Fatalf("PopFront() = %v, want a", got)
	}
	if got := l.PopFront(); got != b {
		t.Fatalf("PopFront() = %v, want b", got)
	}
	if !l.Empty() {
		t.Fatalf("list should be empty after draining")
	}
}

func TestPushFront(t *testing.T) {
	l := newElemList()
	a, b := &elem{val: 1}, &elem{val: 2}
	l.PushBack(a)
	l.PushFront(b)
	if l.Front() != b || l.Back() != a {
		t.Fatalf("PushFront did not reorder list")
	}
}

func TestIndependentListsOnSameElement(t *testing.T) {
	la := newElemList()
	lb := newElemListB()
	a, b := &elem{val: 1}, &elem{val: 2}

	la.PushBack(a)
	la.PushBack(b)
	lb.PushBack(b)
	lb.PushBack(a)

	if la.Front() != a || la.Back() != b {
		t.Fatalf("list a order wrong")
	}
	if lb.Front() != b || lb.Back() != a {
		t.Fatalf("list b order wrong")
	}
}
