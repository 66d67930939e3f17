package main

import "github.com/zenrelay/zenrelay/cmd"

func main() {
	cmd.Execute()
}
