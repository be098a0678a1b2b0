package store

import (
	"strconv"
	"strings"
)

// tenThousandSuffix is the upstream's shorthand for counts in the tens of
// thousands (e.g. "3.2万" == 32000).
const tenThousandSuffix = "万"

// parseWatchingCount parses the upstream's watching-count string: if the
// raw string carries the ten-thousand suffix, strip it, parse as a float, and
// scale by 10,000, truncating toward zero; otherwise parse as a plain
// integer. Returns ok=false if the string matches neither shape.
func parseWatchingCount(raw string) (count int32, ok bool) {
	if strings.Contains(raw, tenThousandSuffix) {
		trimmed := strings.ReplaceAll(raw, tenThousandSuffix, "")
		f, err := strconv.ParseFloat(trimmed, 32)
		if err != nil {
			return 0, false
		}
		return int32(f * 10_000), true
	}

	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}
