// Package border maps out-of-range sample coordinates back into an image.
package border

// Reflect101 mirrors i into [0, n) without repeating the edge sample
// (gfedcb|abcdefgh|gfedcba), the default border mode of the filters here.
func Reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// Clip clamps i into [0, n).
func Clip(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
