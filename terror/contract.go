// SPDX-License-Identifier: ice License 1.0

package terror

// Public API.

type (
	// Err decorates an error with structured data, e.g. the name of the argument that failed validation.
	Err struct {
		error
		Data map[string]any `json:"data"`
	}
)
