//go:build !unix

package state

// lockFile is a no-op where flock is unavailable; in-process serialization
// still applies.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
