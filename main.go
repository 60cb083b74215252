package main

import (
	"SpotiFM/cmd"
)

func main() {
	cmd.Execute()
}
