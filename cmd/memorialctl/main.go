package main

import "memorial-narrator/internal/cli"

func main() {
	cli.Execute()
}
