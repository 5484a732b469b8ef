package cmd

import (
	"io"
	"strings"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List catalogued tables and their field kinds",
	Long: `List the tables clients may filter and the kind of each field.

Boolean fields only accept "eq" and "neq". Document fields must be addressed
with a nested key, e.g. "data.app".

Examples:
  filterable tables
  filterable tables --config filterable.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, closeDB, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		return printTables(cmd.OutOrStdout(), cat)
	},
}

func printTables(w io.Writer, cat *catalog.Catalog) error {
	tw := tablewriter.NewWriter(w)
	tw.Header("Table", "Default Sort", "Boolean", "Document", "Scalar")
	for _, table := range cat.Tables() {
		byKind := map[catalog.Kind][]string{}
		for _, name := range table.FieldNames() {
			kind, _ := table.Lookup(name)
			byKind[kind] = append(byKind[kind], name)
		}
		if err := tw.Append(
			table.QualifiedName(),
			table.CreatedAtField+" DESC",
			strings.Join(byKind[catalog.KindBoolean], ", "),
			strings.Join(byKind[catalog.KindDocument], ", "),
			strings.Join(byKind[catalog.KindScalar], ", "),
		); err != nil {
			return err
		}
	}
	return tw.Render()
}
