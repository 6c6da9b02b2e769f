package main

import "github.com/oshokin/lovepack/cmd/lovepack/cmd"

func main() {
	cmd.Execute()
}
