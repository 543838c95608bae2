package main

import "github.com/evinicim/metalab-insights/cmd"

func main() {
	cmd.Execute()
}
