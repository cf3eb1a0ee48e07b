package main

import "newsdocx/cmd"

func main() {
	cmd.Execute()
}
