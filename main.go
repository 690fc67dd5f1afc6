package main

import "piggyvault-indexer/internal/cli"

func main() {
	cli.Execute()
}
