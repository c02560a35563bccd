package main

import "github.com/tanko-dl/tanko/cmd"

func main() {
	cmd.Execute()
}
