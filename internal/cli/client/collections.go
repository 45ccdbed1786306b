package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// CollectionItem represents a collection in the list response.
type CollectionItem struct {
	Name        string `json:"name"`
	RecordCount int    `json:"record_count"`
	CreatedAt   string `json:"created_at"`
}

// CollectionListAPIResponse represents the collection list API response.
type CollectionListAPIResponse struct {
	Items []CollectionItem `json:"items"`
}

// CollectionsCmd creates the collections command.
func CollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List your collections",
		Long:  "Lists the collections you own with their chunk counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runCollections(api, outputJSON)
		},
	}

	return cmd
}

func runCollections(api *APIClient, outputJSON bool) error {
	resp, err := api.Get("/collections")
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp CollectionListAPIResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No collections found")
		return nil
	}

	fmt.Println("Collections:")
	for _, c := range listResp.Items {
		fmt.Printf("  %s: %d chunks (created: %s)\n", c.Name, c.RecordCount, c.CreatedAt)
	}

	return nil
}
