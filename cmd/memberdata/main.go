// Command memberdata manages sheets, their attribute schemas and the members
// stored against them in a SQLite database.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	a := newApp()
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
