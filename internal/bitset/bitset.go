/*
Copyright 2014 Will Fitzgerald. All rights reserved.
Use of this source code is governed by a BSD-style
license that can be found in the LICENSE file.
*/

// Package bitset implements a mapping between non-negative integers and
// boolean values, used by editorcore to track dense, small-integer node
// identifiers: a node's node_index (range cache) is a compact integer,
// and the range cache's present set answers "is this index still live"
// over them.
//
// This is a simplified and stripped down version of:
//
//	github.com/bits-and-blooms/bitset
//
// adapted from github.com/gaissmai/bart's internal/bitset, trimmed to the
// operations a dirty-index and detached-key set needs. All bugs belong to
// us, not to the original author.
package bitset

import (
	"math/bits"
)

// the wordSize of a bit set
const wordSize = 64

// log2WordSize is lg(wordSize)
const log2WordSize = 6

// A BitSet is a slice of words. This is an internal package
// with a wide open public API.
type BitSet []uint64

// extendSet adds additional words to incorporate new bits if needed.
func (b *BitSet) extendSet(i uint) {
	nsize := wordsNeeded(i)
	if b == nil {
		*b = make([]uint64, nsize)
	} else if len(*b) < nsize {
		newset := make([]uint64, nsize)
		copy(newset, *b)
		*b = newset
	}
}

// bitsCapacity returns the number of possible bits in the current set.
func (b BitSet) bitsCapacity() uint {
	return uint(len(b) * 64)
}

// wordsNeeded calculates the number of words needed for i bits.
func wordsNeeded(i uint) int {
	return int(i+wordSize) >> log2WordSize
}

// bitsIndex calculates the index of i in a `uint64`
func bitsIndex(i uint) uint {
	return i & (wordSize - 1) // (i % 64) but faster
}

// Test whether bit i is set.
func (b BitSet) Test(i uint) bool {
	if i >= b.bitsCapacity() {
		return false
	}
	return b[i>>log2WordSize]&(1<<bitsIndex(i)) != 0
}

// Set bit i to 1, the capacity of the bitset is increased accordingly.
func (b *BitSet) Set(i uint) {
	if i >= b.bitsCapacity() {
		b.extendSet(i)
	}
	(*b)[i>>log2WordSize] |= (1 << bitsIndex(i))
}

// Clear bit i to 0.
func (b *BitSet) Clear(i uint) {
	if i >= b.bitsCapacity() {
		return
	}
	(*b)[i>>log2WordSize] &^= (1 << bitsIndex(i))
}

// ClearAll resets every bit, keeping the underlying storage.
func (b *BitSet) ClearAll() {
	for i := range *b {
		(*b)[i] = 0
	}
}

// Clone this BitSet, returning a new BitSet that has the same bits set.
func (b BitSet) Clone() BitSet {
	c := BitSet(make([]uint64, len(b)))
	copy(c, b)
	return c
}

// NextSet returns the next bit set from the specified index,
// including possibly the current index along with an ok code.
func (b BitSet) NextSet(i uint) (uint, bool) {
	x := int(i >> log2WordSize)
	if x >= len(b) {
		return 0, false
	}
	word := b[x]
	word = word >> bitsIndex(i)
	if word != 0 {
		return i + uint(bits.TrailingZeros64(word)), true
	}
	x++
	for x < len(b) {
		if b[x] != 0 {
			return uint(x*wordSize + bits.TrailingZeros64(b[x])), true
		}
		x++
	}
	return 0, false
}

// Count (number of set bits), also known as "popcount" or "population count".
func (b BitSet) Count() int {
	var cnt int
	for _, x := range b {
		cnt += bits.OnesCount64(x)
	}
	return cnt
}

// IsEmpty reports whether no bit is set.
func (b BitSet) IsEmpty() bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
