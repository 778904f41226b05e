// SPDX-License-Identifier: MPL-2.0

// Package engine abstracts the container runtimes the harness can drive
// (Docker, Finch, Podman). Each engine is a thin wrapper over its CLI
// binary; detection walks a configurable priority list and picks the first
// runtime that is installed and healthy.
package engine
