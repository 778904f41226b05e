// SPDX-License-Identifier: MPL-2.0

// Package session owns the container lifecycle for one scenario: create a
// container from the distribution image, execute shell commands in it
// synchronously, and tear it down when the scenario ends regardless of
// outcome. Sessions are never shared across scenarios.
package session
