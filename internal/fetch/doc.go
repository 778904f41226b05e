// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads installer artifacts from an HTTP base URL or an
// S3 prefix into the bundle/ directory layout the scenarios mount into
// containers. The source-to-destination mapping is fixed: the release
// bucket's short names become the canonical bundle file names.
package fetch
