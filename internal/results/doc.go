// SPDX-License-Identifier: MPL-2.0

// Package results persists per-scenario outcome records, aggregates them
// into a run summary, and renders the summary as a markdown table.
//
// Each scenario writes one JSON file into the results directory, named
// after its matrix cell so reruns overwrite rather than accumulate. The
// aggregator reads every record back (tolerating unparsable files with a
// warning), computes totals and breakdowns, and writes
// zip_test_summary.json alongside the records.
package results
