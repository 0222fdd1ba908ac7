package main

import "github.com/example/camping-sniper/cmd"

func main() {
	cmd.Execute()
}
