package main

import "github.com/Norgate-AV/mint/cmd"

func main() {
	cmd.Execute()
}
