package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// TaskAPIRequest represents the task API request.
type TaskAPIRequest struct {
	Task  string   `json:"task"`
	Scope []string `json:"scope,omitempty"`
}

// TaskStepTrace represents one executed plan step in the task response.
type TaskStepTrace struct {
	Kind       string   `json:"kind"`
	Query      string   `json:"query,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// TaskAPIResponse represents the task API response.
type TaskAPIResponse struct {
	Task    string          `json:"task"`
	Status  string          `json:"status"`
	Answer  string          `json:"answer,omitempty"`
	Sources []string        `json:"sources,omitempty"`
	Trace   []TaskStepTrace `json:"trace"`
}

// TaskCmd creates the task command.
func TaskCmd() *cobra.Command {
	var scope []string

	cmd := &cobra.Command{
		Use:   "task <description>",
		Short: "Run a multi-step research task",
		Long:  "Plans retrieval steps for the task, executes them, and synthesizes an answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runTask(api, args[0], scope, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&scope, "scope", "s", nil, "Collections to search, or 'all' (default: all)")

	return cmd
}

func runTask(api *APIClient, task string, scope []string, outputJSON bool) error {
	req := TaskAPIRequest{
		Task:  task,
		Scope: scope,
	}

	resp, err := api.Post("/tasks", req)
	if err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	var taskResp TaskAPIResponse
	if err := json.Unmarshal(resp.Data, &taskResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(taskResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Status: %s\n\n", taskResp.Status)
	if taskResp.Answer != "" {
		fmt.Println(taskResp.Answer)
		fmt.Println()
	}
	if len(taskResp.Sources) > 0 {
		fmt.Printf("Sources: %s\n\n", strings.Join(taskResp.Sources, ", "))
	}

	fmt.Println("Trace:")
	for i, step := range taskResp.Trace {
		line := fmt.Sprintf("  %d. %s", i+1, step.Kind)
		if step.Query != "" {
			line += fmt.Sprintf(" %q", step.Query)
		}
		line += fmt.Sprintf(" (%dms)", step.DurationMS)
		if step.Error != "" {
			line += fmt.Sprintf(" error: %s", step.Error)
		}
		fmt.Println(line)
	}

	return nil
}
