// defectctl runs defect analytics from the command line, either over a JSON
// file of defect records or against the configured store.
package main

import (
	"os"

	"defectinsight/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
