//go:build !windows

package main

// RunAsService is a no-op on non-Windows platforms. Returns false so the
// gateway runs normally in the foreground.
func RunAsService() (bool, error) {
	return false, nil
}
