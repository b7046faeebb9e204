package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/sheet"
	"github.com/ironsheep/doc-tools-mcp/internal/sqltool"
)

var (
	sheetName     string
	sheetHeader   int
	sheetEncoding string
	sheetOperand  float64
	sheetOutput   string

	sqlDriver  string
	sqlDSN     string
	sqlSchema  string
	sqlOrderBy string
	sqlLimit   int
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Inspect and transform CSV and Excel files",
}

var sheetColumnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "Print the column names of a sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cols, err := sheet.Columns(args[0], sheetReadOptions())
		if err != nil {
			return err
		}
		for _, c := range cols {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var sheetTransformCmd = &cobra.Command{
	Use:   "transform <file> <column> <op>",
	Short: "Apply an operation to one column and save the result",
	Long: `Apply op to every cell of column and write the table to --output.

Ops: multiply, add, subtract, divide (with --operand), upper, lower, trim.
The output format follows the --output extension (.csv or .xlsx).`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, err := sheet.Operation(args[2], sheetOperand)
		if err != nil {
			return err
		}
		opts := sheetReadOptions()
		t, err := sheet.Transform(args[0], args[1], fn, opts)
		if err != nil {
			return err
		}
		if err := sheet.Write(sheetOutput, t, sheet.WriteOptions{Sheet: opts.Sheet, Encoding: opts.Encoding}); err != nil {
			return err
		}
		logger.Info("sheet written", zap.String("output", sheetOutput), zap.Int("rows", t.Len()))
		return nil
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Query PostgreSQL or SQLite",
	Long: `Run queries against the configured database.

The connection comes from database.driver and database.dsn in the config
file, DOC_TOOLS_DB_DRIVER and DOC_TOOLS_DB_DSN, or --driver and --dsn.`,
}

var sqlQueryCmd = &cobra.Command{
	Use:   "query <sql> [arg]...",
	Short: "Run a query and print the rows as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error {
		params := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			params = append(params, a)
		}
		res, err := db.Query(ctx, args[0], params...)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	}),
}

var sqlColumnsCmd = &cobra.Command{
	Use:   "columns <table>",
	Short: "Print the column names of a table",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error {
		cols, err := db.ColumnNames(ctx, args[0])
		if err != nil {
			return err
		}
		for _, c := range cols {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	}),
}

var sqlTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print every table with its columns",
	Args:  cobra.NoArgs,
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error {
		schema := sqlSchema
		if schema == "" {
			schema = cfg.Database.Schema
		}
		tables, err := db.AllColumnNames(ctx, schema)
		if err != nil {
			return err
		}
		return printJSON(cmd, tables)
	}),
}

var sqlCountsCmd = &cobra.Command{
	Use:   "counts <table> <column>",
	Short: "Count rows per distinct value of a column",
	Args:  cobra.ExactArgs(2),
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error {
		counts, err := db.ColumnCounts(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		for _, c := range counts {
			fmt.Fprintf(cmd.OutOrStdout(), "%v\t%d\n", c.Value, c.Count)
		}
		return nil
	}),
}

var sqlPropsCmd = &cobra.Command{
	Use:   "props <table> <column> <value> <property>",
	Short: "Print id, collect_time and a property for rows where column = value",
	Args:  cobra.ExactArgs(4),
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error {
		records, err := db.PropertyValues(ctx, sqltool.PropertyQuery{
			Table:    args[0],
			Column:   args[1],
			Value:    args[2],
			Property: args[3],
			OrderBy:  sqlOrderBy,
			Limit:    sqlLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, records)
	}),
}

var sqlExecCmd = &cobra.Command{
	Use:   "exec <file.sql>",
	Short: "Execute a SQL script",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error {
		if err := db.ExecFile(ctx, args[0]); err != nil {
			return err
		}
		logger.Info("script executed", zap.String("file", args[0]))
		return nil
	}),
}

func init() {
	sheetCmd.PersistentFlags().StringVar(&sheetName, "sheet", "", "Worksheet name (default from config)")
	sheetCmd.PersistentFlags().IntVar(&sheetHeader, "header", 0, "0-based row holding the column names")
	sheetCmd.PersistentFlags().StringVar(&sheetEncoding, "encoding", "", "CSV encoding: gbk or utf-8 (default from config)")
	sheetTransformCmd.Flags().Float64Var(&sheetOperand, "operand", 0, "Operand of numeric ops")
	sheetTransformCmd.Flags().StringVarP(&sheetOutput, "output", "o", "", "Output file")
	sheetTransformCmd.MarkFlagRequired("output")

	sheetCmd.AddCommand(sheetColumnsCmd)
	sheetCmd.AddCommand(sheetTransformCmd)

	sqlCmd.PersistentFlags().StringVar(&sqlDriver, "driver", "", "pgx or sqlite (default from config)")
	sqlCmd.PersistentFlags().StringVar(&sqlDSN, "dsn", "", "Data source name (default from config)")
	sqlTablesCmd.Flags().StringVar(&sqlSchema, "schema", "", "PostgreSQL schema (default from config)")
	sqlPropsCmd.Flags().StringVar(&sqlOrderBy, "order-by", "", "Column to sort by")
	sqlPropsCmd.Flags().IntVar(&sqlLimit, "limit", 10, "Maximum rows; 0 for all")

	sqlCmd.AddCommand(sqlQueryCmd)
	sqlCmd.AddCommand(sqlColumnsCmd)
	sqlCmd.AddCommand(sqlTablesCmd)
	sqlCmd.AddCommand(sqlCountsCmd)
	sqlCmd.AddCommand(sqlPropsCmd)
	sqlCmd.AddCommand(sqlExecCmd)

	rootCmd.AddCommand(sheetCmd)
	rootCmd.AddCommand(sqlCmd)
}

func sheetReadOptions() sheet.ReadOptions {
	opts := sheet.ReadOptions{Sheet: sheetName, Header: sheetHeader, Encoding: sheetEncoding}
	if opts.Sheet == "" {
		opts.Sheet = cfg.Sheet.Sheet
	}
	if opts.Encoding == "" {
		opts.Encoding = cfg.Sheet.Encoding
	}
	return opts
}

// withDB opens the configured database around fn.
func withDB(fn func(ctx context.Context, cmd *cobra.Command, db *sqltool.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c := sqltool.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN}
		if sqlDriver != "" {
			c.Driver = sqlDriver
		}
		if sqlDSN != "" {
			c.DSN = sqlDSN
		}
		if c.DSN == "" {
			return errors.New("database not configured: set database.dsn, DOC_TOOLS_DB_DSN or --dsn")
		}

		ctx, stop := signalContext(cmd)
		defer stop()

		db, err := sqltool.Open(ctx, c)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(ctx, cmd, db, args)
	}
}
