package main

import "github.com/Nicotcy/arb-scanner/cmd"

func main() {
	cmd.Execute()
}
