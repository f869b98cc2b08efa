package main

import "github.com/ccbridge/ccbridge/cmd"

func main() {
	cmd.Execute()
}
