package main

import "github.com/Alturino/pricing/cmd"

func main() {
	cmd.Start()
}
