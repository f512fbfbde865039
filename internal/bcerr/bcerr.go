// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bcerr defines the error kinds surfaced by bcminer to its callers.
//
// These are the only errors that ever escape the analyzer as a Go error:
// everything an internal pass can recover from (unresolved callee, missing
// memory cell, branch exhaustion, a timed-out Work) is instead mapped to a
// FinishState or MetaData counter and never wrapped here.
package bcerr

import "errors"

// Sentinel kinds. Wrap one of these with fmt.Errorf("...: %w", KindX) so
// callers can still errors.Is against the kind while getting a useful
// message.
var (
	// BadInput means the bitcode file could not be opened or parsed.
	BadInput = errors.New("bad input")

	// InvalidFilter means a target inclusion/exclusion regex failed to compile.
	InvalidFilter = errors.New("invalid filter")

	// IOFailure means a directory could not be created or a file could not be written.
	IOFailure = errors.New("io failure")

	// SerializationFailure means a trace exceeded its JSON serialization budget.
	// Callers must count this as a timeout rather than raise it further.
	SerializationFailure = errors.New("serialization failure")
)
