package main

import "moodmusic-server-go/src/cli"

func main() {
	cli.Execute()
}
