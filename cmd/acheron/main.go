package main

import "github.com/tartarus-sandbox/acheron/cmd/acheron/cmd"

func main() {
	cmd.Execute()
}
