// Package flock provides cross-platform file locking utilities.
//
// It provides the exclusive, non-blocking file locks that guard workspace
// state snapshots against concurrent sessions, on both Unix and Windows
// systems.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // Lock not acquired - file is in use
//	}
//	defer flock.Unlock(file.Fd())
package flock
