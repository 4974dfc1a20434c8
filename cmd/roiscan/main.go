package main

import "github.com/MeKo-Tech/roiscan/cmd/roiscan/cmd"

func main() {
	cmd.Execute()
}
