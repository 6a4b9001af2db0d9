package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pagegraph/internal/schema"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the declared entity kinds, edges and unions",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print as JSON")
}

func runSchema(cmd *cobra.Command, args []string) error {
	desc := schema.Default().Describe()
	if schemaJSON {
		return printJSON(desc)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range desc.Entities {
		fields := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			name := f.Name
			if f.Required {
				name += "!"
			}
			fields = append(fields, name)
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Kind, strings.Join(fields, " "))
		for _, edge := range e.Edges {
			flags := []string{edge.Cardinality, edge.Policy}
			if edge.Required {
				flags = append(flags, "required")
			}
			if edge.Maintained {
				flags = append(flags, "maintained")
			}
			fmt.Fprintf(w, "  %s -> %s\t%s\t(%s)\n", edge.Name, edge.Target, edge.IDField, strings.Join(flags, ", "))
		}
	}
	for _, u := range desc.Unions {
		variants := make([]string, len(u.Variants))
		for i, v := range u.Variants {
			variants[i] = fmt.Sprintf("%s(%s)", v.Tag, v.Kind)
		}
		line := fmt.Sprintf("union %s\t%s", u.Kind, strings.Join(variants, " | "))
		if u.Flatten {
			line += "\tflattened"
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}
