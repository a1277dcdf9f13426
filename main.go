package main

import "github.com/kamal-hamza/pupsnap/cmd"

func main() {
	cmd.Execute()
}
