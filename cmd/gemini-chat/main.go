package main

import "gemini-chat/internal/cli"

func main() {
	cli.Execute()
}
