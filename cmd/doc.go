// Package cmd defines and implements the CLI commands for the iatafetcher
// executable.
package cmd
