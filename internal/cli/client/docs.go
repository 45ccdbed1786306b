package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentItem represents a document in list and get responses.
type DocumentItem struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

// DocumentListAPIResponse represents the document list API response.
type DocumentListAPIResponse struct {
	Items []DocumentItem `json:"items"`
}

// DocsCmd creates the docs command with subcommands.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage documents",
		Long:  "List, inspect, and delete ingested documents.",
	}

	cmd.AddCommand(DocsListCmd())
	cmd.AddCommand(DocsGetCmd())
	cmd.AddCommand(DocsDeleteCmd())

	return cmd
}

// DocsListCmd creates the docs list command.
func DocsListCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocsList(api, collection, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to list (required)")
	cmd.MarkFlagRequired("collection")

	return cmd
}

func runDocsList(api *APIClient, collection string, outputJSON bool) error {
	resp, err := api.Get("/documents?collection=" + url.QueryEscape(collection))
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp DocumentListAPIResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Printf("No documents found in collection %s\n", collection)
		return nil
	}

	fmt.Printf("Documents in %s:\n\n", collection)
	for i, doc := range listResp.Items {
		fmt.Printf("%d. %s [%s, %s]\n", i+1, doc.Title, doc.Format, doc.Status)
		fmt.Printf("   Chunks: %d\n", doc.ChunkCount)
		fmt.Printf("   ID: %s\n", doc.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

// DocsGetCmd creates the docs get command.
func DocsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocsGet(api, args[0], outputJSON)
		},
	}

	return cmd
}

func runDocsGet(api *APIClient, id string, outputJSON bool) error {
	resp, err := api.Get("/documents/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var doc DocumentItem
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title:      %s\n", doc.Title)
	fmt.Printf("Collection: %s\n", doc.Collection)
	fmt.Printf("Format:     %s\n", doc.Format)
	fmt.Printf("Status:     %s\n", doc.Status)
	fmt.Printf("Chunks:     %d\n", doc.ChunkCount)
	fmt.Printf("Created:    %s\n", doc.CreatedAt)
	fmt.Printf("ID:         %s\n", doc.ID)

	return nil
}

// DocsDeleteCmd creates the docs delete command.
func DocsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocsDelete(api, args[0], outputJSON)
		},
	}

	return cmd
}

func runDocsDelete(api *APIClient, id string, outputJSON bool) error {
	resp, err := api.Delete("/documents/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if outputJSON {
		fmt.Println(string(resp.Data))
		return nil
	}

	fmt.Printf("Document %s deleted\n", id)
	return nil
}
