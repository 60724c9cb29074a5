package main

import "p3fes-translator/internal/cli"

func main() {
	cli.Execute()
}
