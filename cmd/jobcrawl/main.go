// Command jobcrawl collects recent job postings from Saramin into a local or
// shared database.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
