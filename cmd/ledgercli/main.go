// Command ledgercli administers a ledger store directly, without the HTTP API.
//
//	ledgercli --store sqlite:///ledger seed --accounts 3 --items 2
//	ledgercli mint --item 1 --as 2
//	ledgercli purchase --item 1 --buyer 2 --expected-seller 1
//	ledgercli wallet --account 2
//
// A .env file in the working directory, or the one named by --env, is loaded
// before the settings are read, so ledgerstore and the other settings keys can
// be set there.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ledgercli: %v\n", err)
		os.Exit(1)
	}
}
