package main

import "github.com/darmiel/idtoken/cmd"

func main() {
	cmd.Execute()
}
