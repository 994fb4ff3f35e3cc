package main

import "github.com/amachie/folio/cmd"

func main() {
	cmd.Execute()
}
