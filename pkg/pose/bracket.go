package pose

// Keyed is a keyframe with a timestamp. formats.VecKey and formats.QuatKey
// satisfy it.
type Keyed interface {
	KeyTime() float32
}

// FindBracket locates the keyframes surrounding t in a time-sorted sequence.
//
// lo is the last key with time <= t (0 when t precedes every key) and hi is
// the first key with time > t (the last key when none is later). alpha is
// the interpolation factor from lo to hi, 1 for a zero-width bracket. A
// single key yields (0, 0, 0).
//
// cursor caches lo between calls so that playback moving forward costs
// amortized O(1). It restarts from 0 when t falls below the cached key.
// keys must not be empty.
func FindBracket[K Keyed](keys []K, t float32, cursor *int) (lo, hi int, alpha float32) {
	n := len(keys)
	if n == 1 {
		*cursor = 0
		return 0, 0, 0
	}

	lo = *cursor
	if lo < 0 || lo >= n || keys[lo].KeyTime() > t {
		lo = 0
	}
	for lo+1 < n && keys[lo+1].KeyTime() <= t {
		lo++
	}
	*cursor = lo

	hi = lo
	if keys[lo].KeyTime() <= t && lo+1 < n {
		hi = lo + 1
	}

	tLo, tHi := keys[lo].KeyTime(), keys[hi].KeyTime()
	if tHi <= tLo {
		return lo, hi, 1
	}
	return lo, hi, (t - tLo) / (tHi - tLo)
}
