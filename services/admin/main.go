package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crmchat/internal/admin"
	"github.com/crmchat/internal/api"
	"github.com/crmchat/internal/config"
	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/startup"
)

// admin создаёт сотрудника: отдел → роль → валидация формы → POST /users.
// Без -department печатает список отделов, без -role — роли выбранного отдела.
func main() {
	logger.SetPrefix("admin")
	configPath := flag.String("config", "", "path to YAML config")
	username := flag.String("username", "", "login of the new employee")
	email := flag.String("email", "", "email")
	phone := flag.String("phone", "", "phone in international format")
	department := flag.String("department", "", "department id")
	role := flag.String("role", "", "role id within the department")
	flag.Parse()

	cfg := config.Load(*configPath)
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := startup.ConnectCache(ctx, cfg.RedisURL, 5*time.Second)
	defer cache.Close()
	client := api.New(api.Options{
		BaseURL:           cfg.APIBaseURL,
		Token:             cfg.SessionToken,
		Timeout:           cfg.HTTPTimeout,
		Cache:             cache,
		CacheTTL:          cfg.CacheTTL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	if err := run(ctx, client, *username, *email, *phone, *department, *role); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *api.Client, username, email, phone, department, role string) error {
	perms, err := client.FetchPermissions(ctx)
	if err != nil {
		return fmt.Errorf("permissions: %w", err)
	}
	if !admin.CanInvite(perms) {
		return errors.New("creating employees requires the invite_to_team permission")
	}

	if department == "" {
		deps, err := client.FetchDepartments(ctx)
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Printf("%s\t%s\n", d.ID, d.Name)
		}
		return nil
	}

	cascade := admin.NewRoleCascade()
	roles, err := cascade.Load(ctx, client, department)
	if err != nil {
		return fmt.Errorf("roles of %s: %w", department, err)
	}
	if role == "" {
		for _, r := range roles {
			fmt.Printf("%s\t%s\n", r.ID, r.Name)
		}
		return nil
	}
	if !cascade.SelectRole(role) {
		return fmt.Errorf("role %s does not belong to department %s", role, department)
	}

	form := &admin.UserForm{Username: username, Email: email, Phone: phone, Cascade: cascade}
	u, err := form.Submit(ctx, client)
	var fe admin.FieldErrors
	if errors.As(err, &fe) {
		for field, msg := range fe {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
		return errors.New("form is invalid")
	}
	if err != nil {
		return err
	}
	logger.Infof("created user %s (%s)", u.Username, u.ID)
	fmt.Println(u.ID)
	return nil
}
