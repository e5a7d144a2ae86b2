// Command enygma encrypts text through a configurable cipher chain and serves
// the chain editor API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
