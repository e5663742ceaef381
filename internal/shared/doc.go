// Package shared holds utilities used across the SalesPulse codebase that
// do not belong to any single domain package.
//
// The testutil subpackage provides an in-memory slog handler so tests can
// assert on structured log output without touching the global logger.
// Nothing in this package may import other internal packages.
package shared
