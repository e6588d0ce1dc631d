package vdom

import (
	verrors "github.com/vango-dev/vcore/internal/errors"
)

// diffChildren reconciles two fragments in slot. Lists are reconciled by
// key only when every item on both sides has one.
func (d *VirtualDom) diffChildren(to *Mutations, m *mount, slot int, old, new Fragment) {
	ref := &slotRef{m: m, slot: slot}
	oldKeyed, oldMixed := keyedState(old)
	newKeyed, newMixed := keyedState(new)
	if oldMixed || newMixed {
		d.logger.Warn("vdom: "+verrors.New("E302").FormatCompact(),
			"old_items", len(old), "new_items", len(new))
	}
	if oldKeyed && newKeyed {
		if key, n := duplicateKeys(new); n > 0 {
			d.logger.Warn("vdom: "+verrors.New("E301").FormatCompact(), "key", key, "duplicates", n)
		}
		d.diffKeyed(to, ref, old, new)
		return
	}
	d.diffUnkeyed(to, ref, old, new)
}

func keyedState(items Fragment) (keyed, mixed bool) {
	n := 0
	for _, v := range items {
		if v.Key != "" {
			n++
		}
	}
	return n == len(items), n > 0 && n < len(items)
}

// duplicateKeys returns the last repeated key in items and how many items
// repeat an earlier key.
func duplicateKeys(items Fragment) (string, int) {
	seen := make(map[string]struct{}, len(items))
	var key string
	n := 0
	for _, v := range items {
		if _, ok := seen[v.Key]; ok {
			key = v.Key
			n++
			continue
		}
		seen[v.Key] = struct{}{}
	}
	return key, n
}

// diffUnkeyed trims or extends the tail, then diffs positionally.
func (d *VirtualDom) diffUnkeyed(to *Mutations, ref *slotRef, old, new Fragment) {
	switch {
	case len(old) > len(new):
		for _, child := range old[len(new):] {
			d.removeNode(to, child, 0, true)
		}
	case len(new) > len(old):
		anchor := d.findLast(old[len(old)-1])
		n := 0
		for _, child := range new[len(old):] {
			n += d.createVNode(to, child, ref)
		}
		to.insertAfter(anchor, n)
	}
	for i := 0; i < len(old) && i < len(new); i++ {
		d.diffNode(to, old[i], new[i])
	}
}

// diffKeyed diffs the common prefix and suffix in place and hands the rest
// to diffKeyedMiddle.
func (d *VirtualDom) diffKeyed(to *Mutations, ref *slotRef, old, new Fragment) {
	start := 0
	for start < len(old) && start < len(new) && old[start].Key == new[start].Key {
		d.diffNode(to, old[start], new[start])
		start++
	}
	if start == len(old) && start == len(new) {
		return
	}

	endOld, endNew := len(old), len(new)
	for endOld > start && endNew > start && old[endOld-1].Key == new[endNew-1].Key {
		d.diffNode(to, old[endOld-1], new[endNew-1])
		endOld--
		endNew--
	}

	switch {
	case start == endOld:
		if start == endNew {
			return
		}
		n := 0
		for _, child := range new[start:endNew] {
			n += d.createVNode(to, child, ref)
		}
		if endNew < len(new) {
			to.insertBefore(d.findFirst(new[endNew]), n)
		} else {
			to.insertAfter(d.findLast(new[start-1]), n)
		}
	case start == endNew:
		for _, child := range old[start:endOld] {
			d.removeNode(to, child, 0, true)
		}
	default:
		d.diffKeyedMiddle(to, ref, old[start:endOld], new[start:endNew])
	}
}

// diffKeyedMiddle reconciles the unsorted middle of a keyed list. Items on
// the longest increasing run of old positions stay where they are; every
// other reused item is pushed and inserted, so the number of moves is
// minimal.
//
// Duplicate keys keep their first occurrence; later duplicates match
// nothing and are created or removed.
func (d *VirtualDom) diffKeyedMiddle(to *Mutations, ref *slotRef, old, new Fragment) {
	oldIndex := make(map[string]int, len(old))
	for i, child := range old {
		if _, ok := oldIndex[child.Key]; !ok {
			oldIndex[child.Key] = i
		}
	}

	newToOld := make([]int, len(new))
	used := make([]bool, len(old))
	seen := make(map[string]struct{}, len(new))
	shared := 0
	for i, child := range new {
		newToOld[i] = -1
		if _, ok := seen[child.Key]; ok {
			continue
		}
		seen[child.Key] = struct{}{}
		if j, ok := oldIndex[child.Key]; ok {
			newToOld[i] = j
			used[j] = true
			shared++
		}
	}

	if shared == 0 {
		for _, child := range old[1:] {
			d.removeNode(to, child, 0, true)
		}
		n := 0
		for _, child := range new {
			n += d.createVNode(to, child, ref)
		}
		d.removeNode(to, old[0], n, true)
		return
	}

	for j, child := range old {
		if !used[j] {
			d.removeNode(to, child, 0, true)
		}
	}

	lis := longestIncreasing(newToOld)
	for _, i := range lis {
		d.diffNode(to, old[newToOld[i]], new[i])
	}

	place := func(i int) int {
		if j := newToOld[i]; j >= 0 {
			d.diffNode(to, old[j], new[i])
			return d.pushRoots(to, new[i])
		}
		return d.createVNode(to, new[i], ref)
	}

	if last := lis[len(lis)-1]; last < len(new)-1 {
		n := 0
		for i := last + 1; i < len(new); i++ {
			n += place(i)
		}
		to.insertAfter(d.findLast(new[last]), n)
	}
	for k := len(lis) - 1; k > 0; k-- {
		hi, lo := lis[k], lis[k-1]
		if hi-lo <= 1 {
			continue
		}
		n := 0
		for i := lo + 1; i < hi; i++ {
			n += place(i)
		}
		to.insertBefore(d.findFirst(new[hi]), n)
	}
	if first := lis[0]; first > 0 {
		n := 0
		for i := 0; i < first; i++ {
			n += place(i)
		}
		to.insertBefore(d.findFirst(new[first]), n)
	}
}

// longestIncreasing returns the indices of a longest strictly increasing
// subsequence of seq, ignoring negative entries.
func longestIncreasing(seq []int) []int {
	var tails []int
	prev := make([]int, len(seq))
	for i, v := range seq {
		if v < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		prev[i] = -1
		if lo > 0 {
			prev[i] = tails[lo-1]
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}
	out := make([]int, len(tails))
	k := tails[len(tails)-1]
	for j := len(out) - 1; j >= 0; j-- {
		out[j] = k
		k = prev[k]
	}
	return out
}
