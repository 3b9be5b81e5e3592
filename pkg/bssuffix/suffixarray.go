// Package bssuffix builds a lexicographic suffix array over an old buffer
// and performs the approximate-match bisection search the diff engine
// drives its scan loop with.
//
// Construction is qsufsort: a 256-bucket initial partition refined by
// doubling rounds over an auxiliary rank array. The element width (int32 or
// int64) is chosen once at Build time from the buffer size; the sort and
// search are generic over the two widths so each is monomorphised.
package bssuffix

import "bytes"

// index is the element-width constraint the internal qsufsort/split/search
// implementation is generic over.
type index interface {
	~int32 | ~int64
}

// SuffixArray is the built index over an old buffer, plus the buffer itself
// (search needs it to compare candidate suffixes against the new buffer).
type SuffixArray struct {
	old []byte

	sa32 []int32
	sa64 []int64
	wide bool
}

// sa32Threshold is the oldsize above which the 64-bit element width is
// used: an int32 element can hold any index up to MaxInt32-1, and qsufsort
// additionally needs room for the -(oldsize+1) sentinel.
const sa32Threshold = (1 << 31) - 2

// Build constructs the suffix array of old. old must not be mutated for the
// lifetime of the returned SuffixArray.
func Build(old []byte) *SuffixArray {
	sa := &SuffixArray{old: old}
	if len(old) <= sa32Threshold {
		sa.sa32 = qsufsort[int32](old)
	} else {
		sa.sa64 = qsufsort[int64](old)
		sa.wide = true
	}
	return sa
}

// Len returns the length of the old buffer this suffix array indexes.
func (sa *SuffixArray) Len() int { return len(sa.old) }

// Search bisects the suffix array for a long common prefix of newbin and
// returns its position in old together with the prefix length. The descent
// narrows on the lexicographically central suffix, so the result is not
// guaranteed to be the globally longest match when ties exist; the diff
// engine's scoring loop compensates. st/en bound the SA index range to
// search (callers normally pass the full range 0..Len()).
func (sa *SuffixArray) Search(newbin []byte, st, en int) (pos, length int) {
	if sa.wide {
		p, l := search(sa.sa64, sa.old, newbin, int64(st), int64(en))
		return int(p), l
	}
	p, l := search(sa.sa32, sa.old, newbin, int32(st), int32(en))
	return int(p), l
}

// matchlen returns the length of the longest common prefix of a and b.
func matchlen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var i int
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func search[T index](sa []T, old, newbin []byte, st, en T) (pos T, length int) {
	if en-st < 2 {
		x := matchlen(old[sa[st]:], newbin)
		y := matchlen(old[sa[en]:], newbin)
		if x > y {
			return sa[st], x
		}
		return sa[en], y
	}

	x := st + (en-st)/2
	cmplen := len(old) - int(sa[x])
	if len(newbin) < cmplen {
		cmplen = len(newbin)
	}
	if bytes.Compare(old[int(sa[x]):int(sa[x])+cmplen], newbin[:cmplen]) < 0 {
		return search(sa, old, newbin, x, en)
	}
	return search(sa, old, newbin, st, x)
}

// qsufsort builds the suffix array of buf using the 256-bucket initial
// partition followed by doubling rounds of split, driven by the auxiliary
// rank array v. Sorted groups are run-length folded as negative entries so
// later rounds skip them.
func qsufsort[T index](buf []byte) []T {
	n := T(len(buf))
	sa := make([]T, n+1)
	v := make([]T, n+1)

	var buckets [256]T
	for i := 0; i < len(buf); i++ {
		buckets[buf[i]]++
	}
	for i := 1; i < 256; i++ {
		buckets[i] += buckets[i-1]
	}
	for i := 255; i > 0; i-- {
		buckets[i] = buckets[i-1]
	}
	buckets[0] = 0

	for i := T(0); i < n; i++ {
		buckets[buf[i]]++
		sa[buckets[buf[i]]] = i
	}
	sa[0] = n
	for i := T(0); i < n; i++ {
		v[i] = buckets[buf[i]]
	}
	v[n] = 0
	for i := 1; i < 256; i++ {
		if buckets[i] == buckets[i-1]+1 {
			sa[buckets[i]] = -1
		}
	}
	sa[0] = -1

	for h := T(1); sa[0] != -(n + 1); h += h {
		var length T
		i := T(0)
		for i < n+1 {
			if sa[i] < 0 {
				length -= sa[i]
				i -= sa[i]
			} else {
				if length != 0 {
					sa[i-length] = -length
				}
				length = v[sa[i]] + 1 - i
				split(sa, v, i, length, h)
				i += length
				length = 0
			}
		}
		if length != 0 {
			sa[i-length] = -length
		}
	}

	for i := T(0); i < n+1; i++ {
		sa[v[i]] = i
	}
	return sa
}

// split is qsufsort's divide step: it refines the rank equivalence classes
// of sa[start:start+length] using rank+h as the comparison key, selection
// sort below 16 elements and a three-way partition above.
func split[T index](sa, v []T, start, length, h T) {
	if length < 16 {
		var j T
		for k := start; k < start+length; k += j {
			j = 1
			x := v[sa[k]+h]
			for i := T(1); k+i < start+length; i++ {
				if v[sa[k+i]+h] < x {
					x = v[sa[k+i]+h]
					j = 0
				}
				if v[sa[k+i]+h] == x {
					sa[k+j], sa[k+i] = sa[k+i], sa[k+j]
					j++
				}
			}
			for i := T(0); i < j; i++ {
				v[sa[k+i]] = k + j - 1
			}
			if j == 1 {
				sa[k] = -1
			}
		}
		return
	}

	x := v[sa[start+length/2]+h]
	var jj, kk T
	for i := start; i < start+length; i++ {
		if v[sa[i]+h] < x {
			jj++
		}
		if v[sa[i]+h] == x {
			kk++
		}
	}
	jj += start
	kk += jj

	i, j, k := start, T(0), T(0)
	for i < jj {
		switch {
		case v[sa[i]+h] < x:
			i++
		case v[sa[i]+h] == x:
			sa[i], sa[jj+j] = sa[jj+j], sa[i]
			j++
		default:
			sa[i], sa[kk+k] = sa[kk+k], sa[i]
			k++
		}
	}

	for jj+j < kk {
		if v[sa[jj+j]+h] == x {
			j++
		} else {
			sa[jj+j], sa[kk+k] = sa[kk+k], sa[jj+j]
			k++
		}
	}

	if jj > start {
		split(sa, v, start, jj-start, h)
	}

	for i := T(0); i < kk-jj; i++ {
		v[sa[jj+i]] = kk - 1
	}
	if jj == kk-1 {
		sa[jj] = -1
	}

	if start+length > kk {
		split(sa, v, kk, start+length-kk, h)
	}
}
