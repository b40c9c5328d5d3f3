package main

import (
	"os"

	"github.com/mediacatalog/catalog/catalogservice"
)

func main() {
	if err := catalogservice.Run(); err != nil {
		os.Exit(1)
	}
}
