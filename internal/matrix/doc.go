// SPDX-License-Identifier: MPL-2.0

// Package matrix generates the cross-product of distribution, version,
// architecture, and libc variant under test, and knows which combinations
// are pre-declared as unsupported.
package matrix
