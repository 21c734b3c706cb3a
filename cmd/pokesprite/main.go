package main

import "pokesprite/internal/cli"

func main() {
	cli.Execute()
}
