// SPDX-License-Identifier: MPL-2.0

// Package scenario drives one installation scenario inside a container:
// verify the installer zip is present, provision the packages the install
// needs, create an unprivileged user, extract and stage the installer,
// run install.sh, and verify the resulting binary is invokable.
//
// Each step runs sequentially through the session's shell; any step
// failure aborts the scenario. The outcome is always persisted as a
// result record, on success and on every failure path, before the error
// is surfaced to the caller.
package scenario
