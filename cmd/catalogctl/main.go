package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediacatalog/catalog/pkg/client"
)

var (
	apiFlag  string
	userFlag string
	rootCmd  = &cobra.Command{
		Use:   "catalogctl",
		Short: "CLI client for the catalog REST API",
	}
)

func newClient() *client.Client {
	return client.New(apiFlag, userFlag)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// decodeBody parses an inline JSON document from a flag value.
func decodeBody(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("invalid body JSON: %w", err)
	}
	return body, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "catalog service base URL")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "acting user id")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := newClient().Health(context.Background())
			if err != nil {
				return err
			}
			status := "unhealthy"
			if ok {
				status = "healthy"
			}
			_, _ = fmt.Fprintln(os.Stdout, status)
			return nil
		},
	}
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
