package main

import "github.com/dchurbanov/dag-reporter/cmd/dag-reporter/cli"

func main() {
	cli.Execute()
}
