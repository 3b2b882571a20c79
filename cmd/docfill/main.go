package main

import "github.com/mvp-joe/docfill/internal/cli"

func main() {
	cli.Execute()
}
