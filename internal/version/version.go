// Package version holds the FrameScene build version.
package version

// Version is reported by /health, the build_info metric and scenectl.
// Set it at build time with:
//
//	go build -ldflags "-X github.com/AaronLay10/FrameScene/internal/version.Version=x.y.z"
var Version = "0.1.0"
