// The main package for the iatafetcher executable.
package main

import (
	"github.com/JakeFAU/iata-code-fetcher/cmd"
)

func main() {
	cmd.Execute()
}
