// Operator helper: print the Argon2id hash for a password, suitable
// for seeding an account row by hand.
package main

import (
	"fmt"
	"os"

	"github.com/stacklight/identity-server-go/internal/util"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash-password <password>")
		os.Exit(2)
	}

	hash, err := util.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash-password:", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
