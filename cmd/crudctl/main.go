// Package main provides crudctl, a small command-line front end for the
// API client: log in, read models, and create entities against the
// backend configured in the environment.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"crudkit/internal/app"
	"crudkit/internal/client"
	"crudkit/internal/config"
	"crudkit/internal/container"
	"crudkit/internal/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	if command == "help" || command == "-h" || command == "--help" {
		printHelp()
		return
	}

	c, err := container.Build()
	if err != nil {
		logrus.Fatalf("Failed to build container: %v", err)
	}

	// Provide the terminal prompt as the password UI.
	if err := c.Provide(func() client.PasswordPrompter { return stdinPrompter{} }); err != nil {
		logrus.Fatalf("Failed to provide prompter: %v", err)
	}

	if err := c.Invoke(func(cfg *config.Config) {
		utils.SetupLogger(utils.LogSettings{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}); err != nil {
		logrus.Fatalf("Failed to set up logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := c.Invoke(func(application *app.App) {
		if err := application.Start(ctx); err != nil {
			logrus.Fatalf("Failed to start: %v", err)
		}
		defer application.Stop(context.Background())

		if err := runCommand(ctx, application.Client(), command, args); err != nil {
			logrus.Fatalf("Command failed: %v", err)
		}
	}); err != nil {
		logrus.Fatalf("Failed to run: %v", err)
	}
}

func printHelp() {
	fmt.Println("crudctl - command-line client for a CRUD JSON API.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  crudctl login <model> <username> <password>")
	fmt.Println("  crudctl read <model> [field=value ...]")
	fmt.Println("  crudctl create <model> field=value [field=value ...]")
	fmt.Println()
	fmt.Println("Configuration comes from the environment (or a .env file):")
	fmt.Println("  API_BASE_URL, API_KEY, STORE_PATH, REDIS_DSN, STORE_SECRET, ...")
}

func runCommand(ctx context.Context, c *client.Client, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 3 {
			return fmt.Errorf("usage: crudctl login <model> <username> <password>")
		}
		user, err := c.Login(ctx, args[0], args[1], args[2], nil)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", user.Username, user.ID)
		return nil

	case "read":
		if len(args) < 1 {
			return fmt.Errorf("usage: crudctl read <model> [field=value ...]")
		}
		resp, err := c.Read(ctx, args[0], parseParams(args[1:]), readOptions())
		if err != nil {
			return err
		}
		for _, result := range resp.Results() {
			fmt.Println(result.Raw)
		}
		return nil

	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: crudctl create <model> field=value [field=value ...]")
		}
		data := make(map[string]any)
		for name, value := range parseParams(args[1:]) {
			data[name] = value
		}
		resp, err := c.Create(ctx, args[0], data, nil, createOptions())
		if err != nil {
			if client.IsCancelled(err) {
				fmt.Println("Rejected by the server:", err)
				return nil
			}
			if client.IsTransport(err) || client.IsConnectivity(err) {
				fmt.Println("Backend unreachable; the create was queued for replay.")
				return nil
			}
			return err
		}
		fmt.Println(resp.Entity().Raw)
		return nil

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Run 'crudctl help' for usage.")
		os.Exit(1)
		return nil
	}
}

func readOptions() *client.CRUDRequestOptions {
	opts := client.DefaultCRUDRequestOptions()
	opts.UseCache = true
	return opts
}

func createOptions() *client.CRUDRequestOptions {
	opts := client.DefaultCRUDRequestOptions()
	opts.QueueOffline = true
	return opts
}

func parseParams(args []string) client.Params {
	params := client.Params{}
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found {
			logrus.Warnf("Ignoring argument without '=': %s", arg)
			continue
		}
		params[name] = value
	}
	return params
}

// stdinPrompter asks for the owner password on the terminal.
type stdinPrompter struct{}

func (stdinPrompter) Prompt(ctx context.Context) (string, bool, error) {
	fmt.Print("Password (empty to cancel): ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", false, scanner.Err()
	}
	password := strings.TrimSpace(scanner.Text())
	if password == "" {
		return "", false, nil
	}
	return password, true, nil
}
