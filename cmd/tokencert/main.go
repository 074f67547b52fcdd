package main

import "github.com/jmcleod/tokencert/cmd/tokencert/cmd"

func main() {
	cmd.Execute()
}
