package main

import "nashidona/cmd"

func main() {
	cmd.Execute()
}
