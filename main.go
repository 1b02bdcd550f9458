package main

import (
	"log"

	"github.com/spigell/rfp-responder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
