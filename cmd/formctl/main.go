package main

import "formcraft/cmd/formctl/commands"

func main() {
	commands.Execute()
}
