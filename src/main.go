package main

import (
	"ledger-server/src/cmd"
)

func main() {
	cmd.Execute()
}
