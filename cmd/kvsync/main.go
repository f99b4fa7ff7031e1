// Command kvsync reads, writes and clears one entry of a key-value store
// through a kvsync machine.
//
//	KVSYNC_BACKEND=redis REDIS_URL=redis://localhost:6379/0 kvsync --key greeting set hello
//	kvsync --key greeting get
//	kvsync --key greeting clear
//
// Backend settings come from the environment (and an optional .env file);
// see package kvstore for the variables each backend reads.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
