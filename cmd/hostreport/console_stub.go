//go:build !windows

package main

// Console handling only matters for the Windows tray build.

func hideConsoleWindow() {}

func spawnDetachedIfNeeded(bool) bool { return false }
