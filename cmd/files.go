/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/sorynturda/link-sharing/internal/views"
	"github.com/sorynturda/link-sharing/types"
	"github.com/spf13/cobra"
)

// filesCmd represents the files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage your files",
}

// dashboard authenticates and opens the file view for the signed-in user.
// The returned func releases it.
func dashboard(cmd *cobra.Command) (*views.Dashboard, *app, func(), error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	claims, err := a.authenticate(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	events, closeEvents := a.activity(cmd.Context())
	d := views.NewDashboard(cmd.Context(), a.client, claims.UserID, a.viewOptions(cmd, claims, events))
	return d, a, func() {
		d.Close()
		closeEvents()
	}, nil
}

var filesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your files",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, _, done, err := dashboard(cmd)
		if err != nil {
			return err
		}
		defer done()

		if err := d.Refresh(cmd.Context()); err != nil {
			return result(cmd, d.Alert(), err)
		}
		printFiles(cmd.OutOrStdout(), d.Files())
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file (20 MB at most)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", args[0])
		}

		d, _, done, err := dashboard(cmd)
		if err != nil {
			return err
		}
		defer done()

		err = d.Upload(cmd.Context(), filepath.Base(args[0]), f, info.Size())
		return result(cmd, d.Alert(), err)
	},
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download <file-id>",
	Short: "Download a file",
	Long: `Download a file into --out, or into the configured storage backend
(a local directory, a MinIO bucket or a GCS bucket) when --out is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, a, done, err := dashboard(cmd)
		if err != nil {
			return err
		}
		defer done()

		out, _ := cmd.Flags().GetString("out")
		sink, err := a.sink(cmd.Context(), out)
		if err != nil {
			return err
		}
		location, err := d.Download(cmd.Context(), fileID, sink)
		if err != nil {
			return result(cmd, d.Alert(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", location)
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:     "delete <file-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, _, done, err := dashboard(cmd)
		if err != nil {
			return err
		}
		defer done()

		err = d.Delete(cmd.Context(), fileID)
		return result(cmd, d.Alert(), err)
	},
}

var filesShareCmd = &cobra.Command{
	Use:   "share <file-id>",
	Short: "Create a public link and copy it to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, _, done, err := dashboard(cmd)
		if err != nil {
			return err
		}
		defer done()

		// The list gives the event its file name.
		_ = d.Refresh(cmd.Context())
		_, err = d.Share(cmd.Context(), fileID)
		return result(cmd, d.Alert(), err)
	},
}

var filesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download every file into the configured storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, a, done, err := dashboard(cmd)
		if err != nil {
			return err
		}
		defer done()

		out, _ := cmd.Flags().GetString("out")
		sink, err := a.sink(cmd.Context(), out)
		if err != nil {
			return err
		}
		if prefix, _ := cmd.Flags().GetString("prefix"); prefix != "" {
			sink = sink.WithPrefix(prefix)
		}
		if err := d.Refresh(cmd.Context()); err != nil {
			return result(cmd, d.Alert(), err)
		}
		_, err = d.Export(cmd.Context(), sink)
		return result(cmd, d.Alert(), err)
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesListCmd, filesUploadCmd, filesDownloadCmd, filesDeleteCmd, filesShareCmd, filesExportCmd)

	filesCmd.PersistentFlags().Bool("no-qr", false, "do not draw a QR code when the clipboard is unavailable")
	filesDownloadCmd.Flags().StringP("out", "o", "", "directory to save into")
	filesExportCmd.Flags().StringP("out", "o", "", "directory to save into")
	filesExportCmd.Flags().String("prefix", "", "key prefix inside the storage backend")
}

func printFiles(w io.Writer, files []types.File) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files uploaded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tSHARED")
	for _, f := range files {
		shared := "-"
		if f.ShareEnabled && f.ShareURL != "" {
			shared = f.ShareURL
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.FileID, f.FileName, views.FormatSize(f.FileSize), shared)
	}
	_ = tw.Flush()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
