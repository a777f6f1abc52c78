package main

import "github.com/aaronwins356/voltrader/cmd"

func main() {
	cmd.Execute()
}
