// Package cli defines the meshweave command line: flag parsing, config file
// loading and the mapping of failures to exit codes.
package cli
