/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sorynturda/link-sharing/internal/views"
	"github.com/spf13/cobra"
)

// adminCmd represents the admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage other users' files (admin role)",
}

// adminView authenticates as an admin and, when userArg is not empty,
// selects that user.
func adminView(cmd *cobra.Command, userArg string) (*views.Admin, *app, func(), error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	claims, err := a.authenticateAdmin(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	events, closeEvents := a.activity(cmd.Context())
	v := views.NewAdmin(cmd.Context(), a.client, a.viewOptions(cmd, claims, events))
	done := func() {
		v.Close()
		closeEvents()
	}

	if userArg != "" {
		userID, err := parseID(userArg)
		if err != nil {
			done()
			return nil, nil, nil, err
		}
		if err := v.Select(cmd.Context(), userID); err != nil {
			done()
			return nil, nil, nil, result(cmd, v.Alert(), err)
		}
	}
	return v, a, done, nil
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List regular users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _, done, err := adminView(cmd, "")
		if err != nil {
			return err
		}
		defer done()

		if err := v.LoadUsers(cmd.Context()); err != nil {
			return result(cmd, v.Alert(), err)
		}
		users := v.Users()
		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, "No users found.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL")
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", u.UserID, u.Username, u.Email)
		}
		return tw.Flush()
	},
}

var adminFilesCmd = &cobra.Command{
	Use:   "files <user-id>",
	Short: "List a user's files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _, done, err := adminView(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		printFiles(cmd.OutOrStdout(), v.Files())
		return nil
	},
}

var adminDownloadCmd = &cobra.Command{
	Use:   "download <user-id> <file-id>",
	Short: "Download a user's file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[1])
		if err != nil {
			return err
		}
		v, a, done, err := adminView(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		out, _ := cmd.Flags().GetString("out")
		sink, err := a.sink(cmd.Context(), out)
		if err != nil {
			return err
		}
		location, err := v.Download(cmd.Context(), fileID, sink)
		if err != nil {
			return result(cmd, v.Alert(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", location)
		return nil
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:     "delete <user-id> <file-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a user's file",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[1])
		if err != nil {
			return err
		}
		v, _, done, err := adminView(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		err = v.Delete(cmd.Context(), fileID)
		return result(cmd, v.Alert(), err)
	},
}

var adminShareCmd = &cobra.Command{
	Use:   "share <user-id> <file-id>",
	Short: "Create a public link for a user's file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[1])
		if err != nil {
			return err
		}
		v, _, done, err := adminView(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		_, err = v.Share(cmd.Context(), fileID)
		return result(cmd, v.Alert(), err)
	},
}

var adminExportCmd = &cobra.Command{
	Use:   "export <user-id>",
	Short: "Download all of a user's files into the configured storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, a, done, err := adminView(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		out, _ := cmd.Flags().GetString("out")
		sink, err := a.sink(cmd.Context(), out)
		if err != nil {
			return err
		}
		prefix, _ := cmd.Flags().GetString("prefix")
		if prefix == "" {
			prefix = "user-" + args[0]
		}
		_, err = v.Export(cmd.Context(), sink.WithPrefix(prefix))
		return result(cmd, v.Alert(), err)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminUsersCmd, adminFilesCmd, adminDownloadCmd, adminDeleteCmd, adminShareCmd, adminExportCmd)

	adminCmd.PersistentFlags().Bool("no-qr", false, "do not draw a QR code when the clipboard is unavailable")
	adminDownloadCmd.Flags().StringP("out", "o", "", "directory to save into")
	adminExportCmd.Flags().StringP("out", "o", "", "directory to save into")
	adminExportCmd.Flags().String("prefix", "", "key prefix inside the storage backend (default user-<id>)")
}
