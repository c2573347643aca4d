package main

import "notes-app/src/cli"

func main() {
	cli.Execute()
}
