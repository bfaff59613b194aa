package main

import (
	"fmt"
	"io"
	"os"

	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var serverURL, token string

	root := &cobra.Command{
		Use:           "client",
		Short:         "Command line client for the files API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("FILES_SERVER", "http://localhost:5000"), "API base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("FILES_TOKEN"), "session token (X-Token)")

	client := func() *FileClient { return NewFileClient(serverURL, token) }

	root.AddCommand(
		newConnectCommand(client),
		newUploadCommand(client),
		newListCommand(client),
		newShowCommand(client),
		newPublishCommand(client, true),
		newPublishCommand(client, false),
		newGetCommand(client),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newConnectCommand(client func() *FileClient) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <email> <password>",
		Short: "Sign in and print a session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := client().Connect(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newUploadCommand(client func() *FileClient) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file, or create a folder with --folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := client().Upload(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded: %s (ID: %s, type: %s)\n", rec.Name, rec.ID, rec.Kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "parent folder id")
	cmd.Flags().BoolVar(&opts.IsPublic, "public", false, "make the file public")
	cmd.Flags().BoolVar(&opts.Folder, "folder", false, "create a folder named <path>")
	return cmd
}

func newListCommand(client func() *FileClient) *cobra.Command {
	var parent string
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List your files under a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := client().List(cmd.Context(), parent, page, pageSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Found %d files:\n", len(recs))
			for i, rec := range recs {
				printRecord(cmd.OutOrStdout(), i+1, rec)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent folder id (default root)")
	cmd.Flags().IntVar(&page, "page", 0, "page number, starting at 0")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page")
	return cmd
}

func newShowCommand(client func() *FileClient) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one file record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := client().Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), 1, rec)
			return nil
		},
	}
}

func newPublishCommand(client func() *FileClient, public bool) *cobra.Command {
	use, short := "unpublish <id>", "Make a file private"
	if public {
		use, short = "publish <id>", "Make a file public"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := client().SetPublic(cmd.Context(), args[0], public)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s isPublic=%t\n", rec.ID, rec.IsPublic)
			return nil
		},
	}
}

func newGetCommand(client func() *FileClient) *cobra.Command {
	var size, output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download file content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, contentType, err := client().Download(cmd.Context(), args[0], size, w)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Downloaded %s (%s) to %s\n", humanize.Bytes(uint64(n)), contentType, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "thumbnail width (100, 250 or 500)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func printRecord(w io.Writer, n int, rec *models.FileRecord) {
	visibility := "private"
	if rec.IsPublic {
		visibility = "public"
	}
	fmt.Fprintf(w, "  %d. %s (ID: %s, %s, %s, parent: %s)\n", n, rec.Name, rec.ID, rec.Kind, visibility, rec.Parent)
}
