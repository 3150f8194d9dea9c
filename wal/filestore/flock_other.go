//go:build !linux && !darwin

package filestore

import "os"

// flock is a best-effort no-op on platforms without POSIX advisory locks.
func flock(f *os.File) error { return nil }
