// Package main is the entry point for the squadstats CLI, which collects the
// Call of Duty matches a roster played together and reports on them.
package main

import "github.com/pable/squadstats/cmd"

func main() {
	cmd.Execute()
}
