package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
)

func newClassifyCmd() *cobra.Command {
	var (
		status  int
		message string
		timeout bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the formatted details for a synthetic transport failure",
		Long: "Builds the failure a client would see for the given HTTP status " +
			"(0 means no response) and prints the normalized error details as JSON.",
		Example: "  guardctl classify --status 503\n  guardctl classify --status 0 --message \"connection refused\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status < 0 || status > 599 {
				return fmt.Errorf("invalid status %d", status)
			}
			d := apperr.FormatError(syntheticError(status, message, timeout))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}

	cmd.Flags().IntVar(&status, "status", 0, "HTTP status of the response, 0 for no response")
	cmd.Flags().StringVar(&message, "message", "", "Message carried by the response body or transport error")
	cmd.Flags().BoolVar(&timeout, "timeout", false, "Simulate a deadline exceeded failure")
	return cmd
}

func syntheticError(status int, message string, timeout bool) error {
	switch {
	case timeout:
		return fmt.Errorf("GET /api: %w", context.DeadlineExceeded)
	case status == 0:
		if message == "" {
			message = "connection refused"
		}
		return &apperr.StatusError{Method: "GET", URL: "/api", Err: errors.New(message)}
	default:
		return &apperr.StatusError{Method: "GET", URL: "/api", StatusCode: status, Message: message}
	}
}
