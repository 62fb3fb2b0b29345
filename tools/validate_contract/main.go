// Command validate_contract loads OpenAPI contracts the way the shim does, reports problems that
// would stop them being served, and prints the operation index of each.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/imposter-project/contract-shim/internal/contract"
	"github.com/imposter-project/contract-shim/internal/operation"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	app := kingpin.New("validate_contract", "Validates OpenAPI contracts and prints their operation index.")
	locations := app.Arg("contract", "Contract files or remote locations.").Required().Strings()
	strict := app.Flag("strict", "Treat lint warnings as failures.").Bool()
	quiet := app.Flag("quiet", "Do not print the operation index.").Short('q').Bool()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	valid := validateContracts(context.Background(), os.Stdout, *locations, *strict, !*quiet)
	fmt.Printf("%d of %d contracts valid\n", valid, len(*locations))
	if valid != len(*locations) {
		os.Exit(1)
	}
}

// validateContracts checks each contract and returns how many are valid.
func validateContracts(ctx context.Context, w io.Writer, locations []string, strict bool, printIndex bool) int {
	var validCount int
	for _, location := range locations {
		if validateContract(ctx, w, location, strict, printIndex) {
			validCount++
		}
	}
	return validCount
}

func validateContract(ctx context.Context, w io.Writer, location string, strict bool, printIndex bool) bool {
	c, err := contract.Resolve(ctx, location, "")
	if err != nil {
		fmt.Fprintf(w, "✗ %s - Invalid:\n\t - %v\n", location, err)
		return false
	}
	index, err := operation.Build(c)
	if err != nil {
		fmt.Fprintf(w, "✗ %s - Invalid:\n\t - %v\n", location, err)
		return false
	}
	prefixes, err := c.ServerBasePaths()
	if err != nil {
		fmt.Fprintf(w, "✗ %s - Invalid:\n\t - %v\n", location, err)
		return false
	}

	warnings := c.Lint()
	valid := !strict || len(warnings) == 0
	if valid {
		fmt.Fprintf(w, "✓ %s - Valid (%s, %d operations)\n", location, c.Title(), index.Len())
	} else {
		fmt.Fprintf(w, "✗ %s - Invalid:\n", location)
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "\t - warning: %s\n", warning)
	}

	if printIndex {
		printOperations(w, index, prefixes)
	}
	return valid
}

func printOperations(w io.Writer, index *operation.Index, prefixes []string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tOPERATION\tMETHOD\tPATH")
	for _, id := range index.IDs() {
		op := index.Get(id)
		for _, prefix := range prefixes {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", op.ID, op.Method, prefix+op.Path)
		}
	}
	_ = tw.Flush()
}
