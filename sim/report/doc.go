// Package report renders simulation results for people and exports them for tools:
// go-pretty summary tables, a CSV event log, and a zstd-compressed JSON-lines archive.
package report
