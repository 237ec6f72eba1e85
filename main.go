//	@title			Identity API
//	@version		1.0
//	@description	OAuth 2.0 / OpenID Connect authorization server (authorization code with PKCE, refresh token rotation)

//	@contact.name	API Support
//	@contact.url	https://github.com/go-authgate/identity

//	@license.name	MIT
//	@license.url	https://github.com/go-authgate/identity/blob/main/LICENSE

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-authgate/identity/internal/bootstrap"
	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/logging"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion(os.Stdout)
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Handle subcommands
	ctx := context.Background()
	switch args[0] {
	case "server":
		err = bootstrap.Run(ctx, cfg, log)
	case "seed":
		err = withApplication(ctx, cfg, log, func(app *bootstrap.Application) error {
			return app.SeedService.Seed(ctx)
		})
	case "prune":
		err = withApplication(ctx, cfg, log, func(app *bootstrap.Application) error {
			result, err := app.MaintenanceService.Prune(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d tokens and %d authorizations\n", result.Tokens, result.Authorizations)
			return nil
		})
	case "revoke":
		if len(args) != 2 {
			printUsage()
			os.Exit(1)
		}
		err = withApplication(ctx, cfg, log, func(app *bootstrap.Application) error {
			err := app.MaintenanceService.RevokeAuthorization(ctx, args[1], "cli")
			if errors.Is(err, services.ErrAuthorizationNotFound) {
				return fmt.Errorf("authorization %s not found", args[1])
			}
			return err
		})
	case "revoke-user":
		if len(args) != 3 {
			printUsage()
			os.Exit(1)
		}
		err = withApplication(ctx, cfg, log, func(app *bootstrap.Application) error {
			n, err := app.MaintenanceService.RevokeUserGrants(ctx, args[1], args[2], "cli")
			if err != nil {
				return err
			}
			fmt.Printf("Revoked %d authorizations\n", n)
			return nil
		})
	case "clients", "scopes":
		list := listClients
		if args[0] == "scopes" {
			list = listScopes
		}
		err = withApplication(ctx, cfg, log, func(app *bootstrap.Application) error {
			return list(ctx, os.Stdout, app.DB, args[1:])
		})
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Errorw("command failed", "command", args[0], "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

// withApplication builds the application without the HTTP layer, runs fn
// and releases everything afterwards.
func withApplication(
	ctx context.Context,
	cfg *config.Config,
	log *zap.SugaredLogger,
	fn func(app *bootstrap.Application) error,
) error {
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return errors.Join(fn(app), app.Close(ctx))
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("OAuth 2.0 / OpenID Connect authorization server")
	fmt.Println("\nCommands:")
	fmt.Println("  server                          Seed reference data and start the server")
	fmt.Println("  seed                            Create the API scope, SPA client and admin user")
	fmt.Println("  prune                           Remove expired tokens and orphaned authorizations")
	fmt.Println("  revoke <authorization-id>       Revoke an authorization and its tokens")
	fmt.Println("  revoke-user <subject> <client>  Revoke every authorization a user holds for a client")
	fmt.Println("  clients [page] [search]         List registered clients")
	fmt.Println("  scopes [page] [search]          List registered scopes")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}
