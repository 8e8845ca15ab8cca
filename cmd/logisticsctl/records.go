package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/logistics/internal/service/grpc"
)

// newRecordCmd собирает подкоманды get/list/create/update/replace/delete
// для одной коллекции.
func newRecordCmd[T domain.Record](c *cli, kind domain.RecordKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:     kind.Collection(),
		Aliases: []string{string(kind)},
		Short:   fmt.Sprintf("Manage %s records", kind),
	}

	withClient := func(cmd *cobra.Command, fn func(ctx context.Context, client *grpcsvc.Client[T]) (any, error)) error {
		conn, err := c.connection()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout())
		defer cancel()
		out, err := fn(ctx, grpcsvc.NewClient[T](conn))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	keyUse := fmt.Sprintf("<%s>", kind.KeyField())

	get := &cobra.Command{
		Use:   "get " + keyUse,
		Short: fmt.Sprintf("Fetch a %s by %s", kind, kind.KeyField()),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *grpcsvc.Client[T]) (any, error) {
				return client.Get(ctx, args[0])
			})
		},
	}

	var (
		filters       []string
		sort          string
		limit, offset int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s with filtering, sorting and paging", kind.Collection()),
		Example: fmt.Sprintf("  logisticsctl %s list --filter %s:STARTS_WITH:A --sort %s:DESC --limit 10",
			kind.Collection(), kind.KeyField(), kind.KeyField()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := buildQuery(filters, sort, limit, offset, cmd.Flags().Changed("limit"), cmd.Flags().Changed("offset"))
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, client *grpcsvc.Client[T]) (any, error) {
				return client.List(ctx, q)
			})
		},
	}
	list.Flags().StringArrayVar(&filters, "filter", nil, "filter clause field:OPERATION:value (repeatable, combined with AND)")
	list.Flags().StringVar(&sort, "sort", "", "sort field with optional direction, field[:ASC|DESC]")
	list.Flags().IntVar(&limit, "limit", 0, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "number of records to skip")

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s from a JSON document", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readInput(cmd, createFile)
			if err != nil {
				return err
			}
			rec, err := domain.DecodeRecord[T](raw)
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, client *grpcsvc.Client[T]) (any, error) {
				return client.Create(ctx, rec)
			})
		},
	}
	create.Flags().StringVarP(&createFile, "file", "f", "-", "JSON document, - reads stdin")

	var updateFile string
	update := &cobra.Command{
		Use:   "update " + keyUse,
		Short: fmt.Sprintf("Merge a partial JSON document into a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, updateFile)
			if err != nil {
				return err
			}
			var patch domain.Patch
			if err := json.Unmarshal(raw, &patch); err != nil {
				return fmt.Errorf("decode patch: %w", err)
			}
			return withClient(cmd, func(ctx context.Context, client *grpcsvc.Client[T]) (any, error) {
				return client.Update(ctx, args[0], patch)
			})
		},
	}
	update.Flags().StringVarP(&updateFile, "file", "f", "-", "partial JSON document, - reads stdin")

	var replaceFile string
	replace := &cobra.Command{
		Use:   "replace " + keyUse,
		Short: fmt.Sprintf("Replace a %s with a full JSON document", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, replaceFile)
			if err != nil {
				return err
			}
			rec, err := domain.DecodeRecord[T](raw)
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, client *grpcsvc.Client[T]) (any, error) {
				return client.Replace(ctx, args[0], rec)
			})
		},
	}
	replace.Flags().StringVarP(&replaceFile, "file", "f", "-", "JSON document, - reads stdin")

	del := &cobra.Command{
		Use:   "delete " + keyUse,
		Short: fmt.Sprintf("Delete a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *grpcsvc.Client[T]) (any, error) {
				return client.Delete(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(get, list, create, update, replace, del)
	return cmd
}

// buildQuery переводит флаги list в domain.Query тем же синтаксисом, что и REST.
func buildQuery(filters []string, sort string, limit, offset int, hasLimit, hasOffset bool) (domain.Query, error) {
	var q domain.Query
	for _, raw := range filters {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 {
			return domain.Query{}, fmt.Errorf("filter must look like field:OPERATION:value, got %q", raw)
		}
		q.Filter = append(q.Filter, domain.FilterClause{
			Field:     parts[0],
			Operation: domain.Operation(strings.ToUpper(parts[1])),
			Value:     parts[2],
		})
	}

	if sort != "" {
		field, dir, _ := strings.Cut(sort, ":")
		direction, err := domain.ParseSortDirection(dir)
		if err != nil {
			return domain.Query{}, err
		}
		q.Sort = &domain.SortSpec{Field: field, Direction: direction}
	}

	if limit < 0 || offset < 0 {
		return domain.Query{}, fmt.Errorf("limit and offset must be non-negative")
	}
	if hasLimit || hasOffset {
		if !hasLimit {
			limit = math.MaxInt32
		}
		q.Page = &domain.PageSpec{Limit: limit, Offset: offset}
	}
	return q, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
