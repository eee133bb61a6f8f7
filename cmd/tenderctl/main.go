// Command tenderctl inspects tender datasets offline: it validates their
// shape, prints the processed tenders and aggregates them by city.
//
// Usage:
//
//	tenderctl validate data/tenders.json
//	tenderctl process --city 5000 --price-max 1500000 data/tenders.json
//	tenderctl cities --format yaml https://example.org/tenders.json
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
