package main

import "github.com/moyoez/castanet/cmd"

func main() {
	cmd.Execute()
}
