package util

import (
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

var timeout = 60 * time.Second

// Contains checks whether the specified string is contained in the given string slice.
func Contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SplitList splits a comma separated list, trimming blanks and dropping empty elements.
func SplitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			list = append(list, v)
		}
	}
	return list
}

// NameOfFunction returns the unqualified name of the function at the given program counter,
// e.g. 'Level' for '(*EnvConfig).Level'.
func NameOfFunction(pc uintptr) string {
	f := runtime.FuncForPC(pc)
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ApplyWithBackoff tries to apply the specified function using an exponential backoff algorithm.
// If the function eventually succeed nil is returned, otherwise the error returned by f.
func ApplyWithBackoff(f func() error) error {
	exponentialBackOff := backoff.NewExponentialBackOff()
	exponentialBackOff.MaxElapsedTime = timeout
	exponentialBackOff.Reset()
	return backoff.Retry(f, exponentialBackOff)
}
