// Command factura is the invoicing command line interface.
package main

import (
	"github.com/joho/godotenv"

	"github.com/mbardeau/factura/internal/cli"
)

func main() {
	// A missing .env file is not an error, the environment wins anyway.
	_ = godotenv.Load()

	cli.Execute()
}
