package service

// MatchIndex 在升序 items 中二分查找 key(item) <= target 的最后一个下标
// 找不到返回 (-1, false)；不做向前填充。相同 key 取最后一个。
func MatchIndex[T any](items []T, target int64, key func(T) int64) (int, bool) {
	lo, hi := 0, len(items)-1
	matched := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if key(items[mid]) <= target {
			matched = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return matched, matched >= 0
}

// MatchTimestamp is MatchIndex over a plain slice of timestamps.
func MatchTimestamp(ts []int64, target int64) (int, bool) {
	return MatchIndex(ts, target, func(v int64) int64 { return v })
}
