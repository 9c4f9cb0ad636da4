// corvid.go: version constants and construction defaults.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

const (
	// Version of the corvid engine library.
	Version = "v0.1.0-dev"

	// DefaultReactorSetSize is the default number of file descriptor
	// slots preallocated by the reactor.
	DefaultReactorSetSize = 10_000

	// DefaultDatabaseCount is the number of logical databases created
	// by New when Config.Databases is left at zero.
	DefaultDatabaseCount = 16
)
