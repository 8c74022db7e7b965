package main

import "github.com/chrisglass/windmobile/cmd"

func main() {
	cmd.Execute()
}
