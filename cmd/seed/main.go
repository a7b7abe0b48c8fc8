package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	adomain "github.com/corvusHold/sentinel/internal/authz/domain"
	arepo "github.com/corvusHold/sentinel/internal/authz/repository"
	asvc "github.com/corvusHold/sentinel/internal/authz/service"
	"github.com/corvusHold/sentinel/internal/config"
	"github.com/corvusHold/sentinel/internal/logger"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		fatalf("invalid DATABASE_URL: %v", err)
	}
	pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		fatalf("pg pool: %v", err)
	}
	defer pgPool.Close()

	repo := arepo.New(pgPool)
	store := arepo.NewObjects(pgPool)
	eval := asvc.New(repo, store, cfg)
	eval.SetLogger(logger.New(cfg.AppEnv))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "user":
		fs := flag.NewFlagSet("user", flag.ExitOnError)
		idStr := fs.String("id", "", "user UUID (generated when empty)")
		username := fs.String("username", "", "username")
		active := fs.Bool("active", true, "is_active")
		staff := fs.Bool("staff", false, "is_staff")
		superuser := fs.Bool("superuser", false, "is_superuser")
		_ = fs.Parse(os.Args[2:])
		id := parseOrNewUUID(*idStr)
		u := adomain.User{ID: id, Username: *username, IsActive: *active, IsStaff: *staff, IsSuperuser: *superuser}
		if err := repo.CreateUser(ctx, u); err != nil {
			fatalf("create user: %v", err)
		}
		printEnv(map[string]string{"USER_ID": id.String()})
	case "group":
		fs := flag.NewFlagSet("group", flag.ExitOnError)
		name := fs.String("name", "", "group name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" {
			fatalf("group: --name is required")
		}
		id := uuid.New()
		if err := repo.CreateGroup(ctx, adomain.Group{ID: id, Name: strings.TrimSpace(*name)}); err != nil {
			fatalf("create group: %v", err)
		}
		printEnv(map[string]string{"GROUP_ID": id.String()})
	case "assign-groups":
		fs := flag.NewFlagSet("assign-groups", flag.ExitOnError)
		userIDStr := fs.String("user-id", os.Getenv("USER_ID"), "user UUID")
		namesCSV := fs.String("groups", "", "comma-separated group names")
		_ = fs.Parse(os.Args[2:])
		userID := mustUUID(*userIDStr, "user-id")
		names := splitCSV(*namesCSV)
		if len(names) == 0 {
			fatalf("assign-groups: --groups is required")
		}
		// Unknown names are logged and skipped; the valid ones still apply.
		if err := eval.AssignGroups(ctx, userID, names); err != nil {
			fatalf("assign groups: %v", err)
		}
	case "grant":
		fs := flag.NewFlagSet("grant", flag.ExitOnError)
		userIDStr := fs.String("user-id", os.Getenv("USER_ID"), "user UUID")
		perm := fs.String("permission", "", `permission key, e.g. "dcim.view_device"`)
		constraintsJSON := fs.String("constraints", "", `constraints JSON: null, {"field":"value"}, or a list of such mappings`)
		_ = fs.Parse(os.Args[2:])
		userID := mustUUID(*userIDStr, "user-id")
		if *perm == "" {
			fatalf("grant: --permission is required")
		}
		var spec adomain.ConstraintSpec
		if strings.TrimSpace(*constraintsJSON) != "" {
			if err := json.Unmarshal([]byte(*constraintsJSON), &spec); err != nil {
				fatalf("grant: invalid --constraints: %v", err)
			}
		}
		if err := eval.AssignPermissions(ctx, userID, map[string]adomain.ConstraintSpec{*perm: spec}); err != nil {
			fatalf("assign permissions: %v", err)
		}
	case "object":
		fs := flag.NewFlagSet("object", flag.ExitOnError)
		app := fs.String("app", "", "app label")
		model := fs.String("model", "", "model name")
		pk := fs.String("pk", "", "primary key")
		attrsJSON := fs.String("attrs", "{}", "attributes JSON object")
		_ = fs.Parse(os.Args[2:])
		if *app == "" || *model == "" || *pk == "" {
			fatalf("object: --app, --model, and --pk are required")
		}
		var attrs map[string]any
		if err := json.Unmarshal([]byte(*attrsJSON), &attrs); err != nil {
			fatalf("object: invalid --attrs: %v", err)
		}
		ref := adomain.ObjectRef{Type: adomain.TypeID{AppLabel: *app, Model: *model}, PK: *pk}
		if err := store.UpsertObject(ctx, ref, attrs); err != nil {
			fatalf("upsert object: %v", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: seed <command> [flags]

commands:
  user           create or update a principal
  group          create a group
  assign-groups  add a user to groups by name
  grant          create a single-permission grant for a user
  object         upsert an object in the authoritative store`)
}

func parseOrNewUUID(s string) uuid.UUID {
	if strings.TrimSpace(s) == "" {
		return uuid.New()
	}
	return mustUUID(s, "id")
}

func mustUUID(s, flagName string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		fatalf("invalid --%s: %v", flagName, err)
	}
	return id
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printEnv(kv map[string]string) {
	for k, v := range kv {
		fmt.Printf("%s=%s\n", k, v)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
