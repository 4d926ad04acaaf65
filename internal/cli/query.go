package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/value"
)

// QueryOptions holds flags for find, count and distinct.
type QueryOptions struct {
	*RootOptions
	SessionOptions

	Object string
	Query  string // JSON query object, exclusive with the flags below
	Filter string // JSON filter expression
	Sort   string // "age:desc,name"
	Skip   int
	Limit  int // negative means unlimited
	Fields string
	Field  string
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <config>",
		Short: "Query records from a table",
		Long: `Query records: filter, then sort, then skip and limit, then project.

Filters are JSON and fold strictly left to right, without precedence.

Examples:
  tabula find tabula.cue --object users --filter '[["age",">",28],"and",["age","<",40]]'
  tabula find tabula.cue --object users --sort age:desc --limit 2 --fields id,name
  tabula find tabula.cue --object users --query '{"filters":[["role","=","admin"]],"sort":["-age"],"limit":1}'
  TABULA_DRIVER=sqlite tabula find tabula.cue --object users --db ./tabula.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort keys, e.g. age:desc,name")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "records to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "maximum records to return (negative for no limit)")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "comma-separated fields to project")
	cmd.Flags().StringVar(&opts.Query, "query", "", "JSON query object with filters, sort, skip, limit and fields")
	for _, name := range []string{"filter", "sort", "skip", "limit", "fields"} {
		cmd.MarkFlagsMutuallyExclusive("query", name)
	}

	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <config>",
		Short: "Count records matching a filter",
		Long: `Count records in a table. Without --filter every record counts.

Example:
  tabula count tabula.cue --object users --filter '[["role","=","admin"]]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, opts)
	return cmd
}

// NewDistinctCommand creates the distinct command.
func NewDistinctCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "distinct <config>",
		Short: "List the distinct values of a field",
		Long: `List the distinct values of one field, in first-occurrence order.

Example:
  tabula distinct tabula.cue --object users --field role`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistinct(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Field, "field", "", "field to collect (required)")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	addSessionFlags(cmd, &opts.SessionOptions)
	cmd.Flags().StringVar(&opts.Object, "object", "", "table name (required)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "JSON filter expression")
	_ = cmd.MarkFlagRequired("object")
}

func (o *QueryOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// buildQuery assembles a Query from the command's flags.
func (o *QueryOptions) buildQuery() (*query.Query, error) {
	if o.Query != "" {
		return query.ParseJSON([]byte(o.Query))
	}
	expr, err := filter.ParseJSON([]byte(o.Filter))
	if err != nil {
		return nil, err
	}
	keys, err := query.ParseSort(o.Sort)
	if err != nil {
		return nil, err
	}

	q := &query.Query{Filter: expr, Sort: keys, Skip: o.Skip}
	if o.Limit >= 0 {
		limit := o.Limit
		q.Limit = &limit
	}
	for _, f := range strings.Split(o.Fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			q.Fields = append(q.Fields, f)
		}
	}
	return q, q.Validate()
}

func runFind(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if err := checkPath(formatter, path); err != nil {
		return err
	}

	q, err := opts.buildQuery()
	if err != nil {
		return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	defer s.close(ctx, &opts.SessionOptions, cmd.ErrOrStderr())

	formatter.VerboseLog("find %s on %s driver: %s", opts.Object, s.config.Driver, q.Filter)
	records, err := s.driver.Find(ctx, opts.Object, q)
	if err != nil {
		return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
	}

	vals := make([]value.Value, len(records))
	for i, r := range records {
		vals[i] = r
	}
	return formatter.Values(vals)
}

func runCount(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if err := checkPath(formatter, path); err != nil {
		return err
	}

	expr, err := filter.ParseJSON([]byte(opts.Filter))
	if err != nil {
		return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	defer s.close(ctx, &opts.SessionOptions, cmd.ErrOrStderr())

	n, err := s.driver.Count(ctx, opts.Object, expr)
	if err != nil {
		return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
	}
	if opts.Format == "json" {
		return formatter.Success(map[string]int{"count": n})
	}
	fmt.Fprintln(formatter.Writer, n)
	return nil
}

func runDistinct(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if err := checkPath(formatter, path); err != nil {
		return err
	}

	expr, err := filter.ParseJSON([]byte(opts.Filter))
	if err != nil {
		return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	defer s.close(ctx, &opts.SessionOptions, cmd.ErrOrStderr())

	vals, err := s.driver.Distinct(ctx, opts.Object, opts.Field, expr)
	if err != nil {
		return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
	}
	return formatter.Values(vals)
}
