// Command hashkey prints the bcrypt hash of an admin key for admin.key_hash,
// or checks a key against an existing hash.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	check := flag.String("check", "", "existing hash to verify the key against")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hashkey [--check HASH] KEY")
		os.Exit(2)
	}
	key := flag.Arg(0)

	if *check != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(*check), []byte(key)); err != nil {
			fmt.Println("hash mismatch:", err)
			os.Exit(1)
		}
		fmt.Println("hash matches")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
