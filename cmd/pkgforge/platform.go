package main

import "runtime"

// currentPlatform derives conda's platform identifier (e.g. "linux-64",
// "osx-arm64", "win-64") from the running process's GOOS/GOARCH, used as
// the default build/target platform when the user doesn't override it.
func currentPlatform() string {
	var os string
	switch runtime.GOOS {
	case "darwin":
		os = "osx"
	case "windows":
		os = "win"
	default:
		os = runtime.GOOS
	}
	var arch string
	switch runtime.GOARCH {
	case "amd64":
		arch = "64"
	case "arm64":
		arch = "arm64"
	default:
		arch = runtime.GOARCH
	}
	return os + "-" + arch
}
