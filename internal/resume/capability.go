package resume

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	headerAcceptRanges = "Accept-Ranges"
	headerRange        = "Range"
	rangeUnitBytes     = "bytes"
)

// AcceptsByteRanges reports whether the response headers advertise range
// requests measured in bytes. The header may list several units and may be
// repeated; "none" or any other unit does not count.
func AcceptsByteRanges(h http.Header) bool {
	for _, v := range h.Values(headerAcceptRanges) {
		for _, unit := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(unit), rangeUnitBytes) {
				return true
			}
		}
	}
	return false
}

// openRange formats an open-ended byte range starting at offset
func openRange(offset int64) string {
	return rangeUnitBytes + "=" + strconv.FormatInt(offset, 10) + "-"
}
