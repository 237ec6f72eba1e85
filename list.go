package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-authgate/identity/internal/store"
)

const listPageSize = 20

// listParams reads the optional [page] [search] arguments of a list command.
func listParams(args []string) (store.PaginationParams, error) {
	page := 1
	search := ""
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return store.PaginationParams{}, fmt.Errorf("invalid page %q", args[0])
		}
		page = n
	}
	if len(args) > 1 {
		search = args[1]
	}
	return store.NewPaginationParams(page, listPageSize, search), nil
}

func listClients(ctx context.Context, w io.Writer, db *store.Store, args []string) error {
	params, err := listParams(args)
	if err != nil {
		return err
	}
	apps, result, err := db.ListApplications(ctx, params)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT ID\tNAME\tTYPE\tPKCE\tSCOPES")
	for i := range apps {
		app := &apps[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			app.ClientID,
			app.DisplayName,
			app.ClientType,
			yesNo(app.RequiresPKCE()),
			orDash(strings.Join(app.ScopePermissions(), " ")),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printPage(w, params, result, "clients")
	return nil
}

func listScopes(ctx context.Context, w io.Writer, db *store.Store, args []string) error {
	params, err := listParams(args)
	if err != nil {
		return err
	}
	scopes, result, err := db.ListScopes(ctx, params)
	if err != nil {
		return fmt.Errorf("list scopes: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tRESOURCES")
	for _, scope := range scopes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			scope.Name,
			orDash(scope.DisplayName),
			orDash(strings.Join(scope.Resources, " ")),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printPage(w, params, result, "scopes")
	return nil
}

func printPage(w io.Writer, params store.PaginationParams, result store.PaginationResult, noun string) {
	if result.Total == 0 {
		fmt.Fprintf(w, "No %s found\n", noun)
		return
	}
	if params.Page > result.TotalPages {
		fmt.Fprintf(w, "Page %d is past the last page (%d)\n", params.Page, result.TotalPages)
		return
	}
	fmt.Fprintf(w, "Page %d of %d (%d %s)", result.CurrentPage, result.TotalPages, result.Total, noun)
	if result.HasNext {
		fmt.Fprintf(w, ", next: %d", result.CurrentPage+1)
	}
	fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
