package main

import "github.com/Laisky/dataroom/cmd"

func main() {
	cmd.Execute()
}
