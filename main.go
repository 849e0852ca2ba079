package main

import "github.com/backforge/backforge/cmd"

func main() {
	cmd.Execute()
}
