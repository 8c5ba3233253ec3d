package rpq

import (
	"net/http"
	"slices"
)

// DefaultErrorStatus is used for errors that match no entry of an ErrorMapping.
const DefaultErrorStatus = http.StatusInternalServerError

// ErrorMapping maps a status code to the error kinds that resolve to it, e.g.
//
//	ErrorMapping{
//	    http.StatusNotFound: {KindNotFound},
//	    http.StatusConflict: {KindConflict},
//	}
type ErrorMapping map[int][]Kind

// Resolve returns the status code for err. Status codes are tried in ascending order and the first one
// listing err's kind wins. Unmatched errors resolve to DefaultErrorStatus.
func (m ErrorMapping) Resolve(err error) int {
	return Resolve(err, m)
}

func Resolve(err error, m ErrorMapping) int {
	if err == nil {
		return http.StatusOK
	}
	kind := KindOf(err)

	codes := make([]int, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	for _, code := range codes {
		if slices.Contains(m[code], kind) {
			return code
		}
	}
	return DefaultErrorStatus
}
