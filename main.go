package main

import "example.com/DeployTools/cmd"

func main() {
	cmd.Execute()
}
