// Command formgatectl is the operator companion to formgate-api: it hashes
// admin passwords and checks configuration before a deploy.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
