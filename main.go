package main

import "github.com/pulsecheck/pulsecheck/cmd"

func main() {
	cmd.Execute()
}
