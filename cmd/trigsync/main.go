package main

import "github.com/strella111/trigsync/cmd/trigsync/cmd"

func main() {
	cmd.Execute()
}
