package main

import "github.com/davarch/deploy-pilot/cmd/deploy-pilot/cli"

func main() {
	cli.Execute()
}
