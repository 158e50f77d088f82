//go:build tools

// Package tools pins build tooling so `go mod tidy` keeps test runner
// versions in lockstep with the module.
package tools

import (
	_ "gotest.tools/gotestsum"
)
