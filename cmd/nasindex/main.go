// Command nasindex is the control-plane client: a cobra command tree that
// talks to a running nasindexd over its HTTP surface. It never touches the
// catalog, vault, or SMB layer directly.
//
// Grounded on marmos91-dittofs's cmd/dittofsctl split between a server
// command tree and a thin HTTP-client CLI, simplified from dittofsctl's
// credential-store/login flow to a single --server/--token pair since this
// system has one flat bearer token rather than per-user sessions.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
