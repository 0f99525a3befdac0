package main

import "github.com/rentaro/notifyd/cmd"

func main() {
	cmd.Execute()
}
