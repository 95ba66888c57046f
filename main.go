package main

import "github.com/mselser95/kalshi-arb/cmd"

func main() {
	cmd.Execute()
}
