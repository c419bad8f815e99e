package tally

import (
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// Re-export common types for convenience so users don't have to import
// every sub-package.

// Entry is re-exported from the entry package.
type Entry = entry.Entry

// Key is re-exported from the stream package.
type Key = stream.Key

// Report is re-exported from the stream package.
type Report = stream.Report

// CombinedReport is re-exported from the stream package.
type CombinedReport = stream.CombinedReport

// Rule is re-exported from the partition package.
type Rule = partition.Rule

// Re-export constructors
var (
	NewKey        = stream.NewKey
	ParseKey      = stream.ParseKey
	ParseQuantity = types.ParseQuantity
	NewClock      = types.NewClock
)
