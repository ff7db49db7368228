// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert provides fault-tolerant conversions for query parameters.

A malformed value is treated like a missing one. Do not use it where telling the
two apart matters; reach for [strconv] directly instead.
*/
package convert

import (
	"strconv"
)

// ToInt converts a string to an integer, returning 0 when it is empty or malformed.
func ToInt(s string) int {
	return ToIntD(s, 0)
}

// ToIntD converts a string to an int, returning def when it is empty or malformed.
func ToIntD(str string, def int) int {
	if str == "" {
		return def
	}

	if v, err := strconv.Atoi(str); err == nil {
		return v
	}

	return def
}

// ToPositiveIntD is [ToIntD] that also falls back to def for zero and negative values.
func ToPositiveIntD(str string, def int) int {
	if v := ToIntD(str, def); v > 0 {
		return v
	}
	return def
}
