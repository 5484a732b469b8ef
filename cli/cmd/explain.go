package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	explainFilter   string
	explainSort     string
	explainPage     string
	explainPageSize string
)

var explainCmd = &cobra.Command{
	Use:   "explain [table]",
	Short: "Show the SQL generated for filter and sort rules",
	Long: `Compile filter and sort rules against a catalog table and print the
parameterised SQL and its bind arguments, without running it.

Examples:
  filterable explain events --filter '[{"f":"level","o":"in","v":["alert","warning"]}]'
  filterable explain events --filter '[{"f":"data.app","v":"api"}]' --sort '[{"f":"name"}]'
  filterable explain public.events --page 2 --page-size 50`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&explainFilter, "filter", "f", "", "Filter rules as a JSON list")
	explainCmd.Flags().StringVarP(&explainSort, "sort", "s", "", "Sort rules as a JSON list")
	explainCmd.Flags().StringVar(&explainPage, "page", "", "Page number")
	explainCmd.Flags().StringVar(&explainPageSize, "page-size", "", "Rows per page (negative for all rows)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	cat, closeDB, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	table, ok := cat.Table(args[0])
	if !ok {
		return fmt.Errorf("table %q is not in the catalog", args[0])
	}

	params := url.Values{}
	setParam(params, query.ParamFilter, explainFilter)
	setParam(params, query.ParamSort, explainSort)
	setParam(params, query.ParamPage, explainPage)
	setParam(params, query.ParamPageSize, explainPageSize)

	return explain(cmd.OutOrStdout(), table, params, query.PageOptions{
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
	})
}

func setParam(params url.Values, name, value string) {
	if value != "" {
		params.Set(name, value)
	}
}

// explain writes the count and select statements of one request
func explain(w io.Writer, table *catalog.Table, params url.Values, opts query.PageOptions) error {
	f, err := query.NewTableProcessor(table).Process(params)
	if err != nil {
		return err
	}
	window, err := query.ParsePage(params, opts)
	if err != nil {
		return err
	}

	stmt := query.NewStatement(table.Schema, table.Name).
		WithCondition(f.Filter).
		WithSort(f.Sort).
		WithWindow(window)
	countSQL, _ := stmt.BuildCount()
	selectSQL, args := stmt.BuildSelect()

	fmt.Fprintf(w, "%s;\n%s;\n", countSQL, selectSQL)
	if len(args) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tablewriter.NewWriter(w)
	tw.Header("Placeholder", "Type", "Value")
	for i, arg := range args {
		if err := tw.Append("$"+strconv.Itoa(i+1), fmt.Sprintf("%T", arg), fmt.Sprintf("%v", arg)); err != nil {
			return err
		}
	}
	return tw.Render()
}

// openCatalog loads the catalog, connecting to PostgreSQL only when tables
// are introspected
func openCatalog(ctx context.Context) (*catalog.Catalog, func(), error) {
	if len(cfg.Catalog.Introspect) == 0 {
		cat, err := loadCatalog(ctx, cfg.Catalog, nil)
		return cat, func() {}, err
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cat, err := loadCatalog(ctx, cfg.Catalog, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return cat, pool.Close, nil
}
