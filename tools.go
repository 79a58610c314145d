//go:build tools
// +build tools

package tools

import (
	// Dependency Injection
	_ "github.com/google/wire/cmd/wire"
)
