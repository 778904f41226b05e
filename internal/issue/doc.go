// SPDX-License-Identifier: MPL-2.0

// Package issue provides structured, user-facing errors for the install
// test harness: what operation failed, which resource was involved, and
// what the operator can do about it.
package issue
