package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Upload and index a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [doc-id]",
	Short: "Rebuild a document index from its stored file",
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		doc, err := a.documents.Upload(ctx, driving.UploadRequest{
			Filename: filepath.Base(args[0]),
			Content:  content,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest document: %w", err)
		}

		cmd.Printf("Indexed %s\n", doc.OriginalName)
		cmd.Printf("  ID: %s\n", doc.ID)
		cmd.Printf("  Index: %s\n", doc.IndexLocation)
		return nil
	})
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		docs, err := a.documents.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		if len(docs) == 0 {
			cmd.Println("No documents uploaded")
			return nil
		}

		for _, d := range docs {
			status := "indexed"
			if !d.IsIndexed() {
				status = "not indexed"
			}
			cmd.Printf("  %s\n", d.ID)
			cmd.Printf("    Name: %s\n", d.OriginalName)
			cmd.Printf("    Uploaded: %s\n", d.UploadedAt.Format("2006-01-02 15:04:05"))
			cmd.Printf("    Status: %s\n", status)
			cmd.Println()
		}

		cmd.Printf("Total: %d documents\n", len(docs))
		return nil
	})
}

func runReindex(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		loc, err := a.documents.Reindex(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to reindex document: %w", err)
		}
		cmd.Printf("Rebuilt index %s\n", loc.Key)
		return nil
	})
}
