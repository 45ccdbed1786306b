package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// IngestRequest represents the document ingest API request.
type IngestRequest struct {
	Collection    string `json:"collection"`
	Title         string `json:"title"`
	Format        string `json:"format"`
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

// IngestResponse represents the synchronous ingest API response.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// IngestAsyncResponse represents the asynchronous ingest API response.
type IngestAsyncResponse struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
}

// binaryFormats are sent base64-encoded because their bytes are not valid
// JSON string content.
var binaryFormats = map[string]bool{
	"pdf":  true,
	"docx": true,
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var (
		collection string
		title      string
		format     string
		async      bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document",
		Long:  "Uploads a document for extraction, chunking and embedding.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runIngest(api, args[0], collection, title, format, async, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to ingest into (required)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (default: file name)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Document format (default: inferred from extension)")
	cmd.Flags().BoolVar(&async, "async", false, "Queue ingestion instead of waiting for it")
	cmd.MarkFlagRequired("collection")

	return cmd
}

func runIngest(api *APIClient, filePath, collection, title, format string, async, outputJSON bool) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if format == "" {
		format = inferFormat(filePath)
		if format == "" {
			return fmt.Errorf("cannot infer format from %q, use --format", filepath.Ext(filePath))
		}
	}

	if title == "" {
		base := filepath.Base(filePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	req := IngestRequest{
		Collection: collection,
		Title:      title,
		Format:     format,
	}
	if binaryFormats[format] {
		req.ContentBase64 = base64.StdEncoding.EncodeToString(data)
	} else {
		req.Content = string(data)
	}

	path := "/documents"
	if async {
		path = "/documents/async"
	}

	resp, err := api.Post(path, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if async {
		var asyncResp IngestAsyncResponse
		if err := json.Unmarshal(resp.Data, &asyncResp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		if outputJSON {
			output, _ := json.MarshalIndent(asyncResp, "", "  ")
			fmt.Println(string(output))
		} else {
			fmt.Printf("Queued document '%s' (id: %s, job: %s)\n", title, asyncResp.DocumentID, asyncResp.JobID)
		}
		return nil
	}

	var ingestResp IngestResponse
	if err := json.Unmarshal(resp.Data, &ingestResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if outputJSON {
		output, _ := json.MarshalIndent(ingestResp, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Ingested document '%s' (id: %s, %d chunks)\n", title, ingestResp.DocumentID, ingestResp.ChunkCount)
	}

	return nil
}

func inferFormat(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".txt", ".text":
		return "txt"
	case ".html", ".htm":
		return "html"
	case ".json":
		return "json"
	case ".xml":
		return "xml"
	case ".md", ".markdown":
		return "markdown"
	}
	return ""
}
