package main

import (
	"os"

	"github.com/mediacatalog/catalog/mirrorworker"
)

func main() {
	if err := mirrorworker.Run(); err != nil {
		os.Exit(1)
	}
}
