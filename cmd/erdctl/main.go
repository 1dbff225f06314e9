// Command erdctl infers keys, relationships and table roles from CSV files or
// a database, renders ER diagrams and converts BI expressions from the shell.
package main

import (
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
