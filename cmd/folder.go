/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evertras/bubble-table/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink/internal/tui/models"
)

// folderCmd represents the folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage host folders bound to boards",
	Long: `Host folders are remembered per board UID and offered again on connect.

Examples:
  boardlink folder show
  boardlink folder set ~/projects/blinky
  boardlink folder forget DF625857C74F3B2C`,
}

var folderShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List remembered folders",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(nil, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		folders := a.store.Folders()
		if len(folders) == 0 {
			fmt.Println("No folders bound")
			return
		}

		fs := afero.NewOsFs()
		rows := make([]table.Row, len(folders))
		for i, f := range folders {
			exists, _ := afero.DirExists(fs, f.Path)
			status := "ok"
			if !exists {
				status = "missing"
			}
			rows[i] = table.NewRow(table.RowData{"uid": f.Identity, "path": f.Path, "status": status})
		}
		fmt.Println(table.New([]table.Column{
			table.NewColumn("uid", "Board UID", 34),
			table.NewColumn("path", "Folder", 48),
			table.NewColumn("status", "Status", 8),
		}).WithRows(rows).BorderRounded().View())
	},
}

var folderSetCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Connect to a board and bind a folder to it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if err := bindFolder(args[0], timeout); err != nil {
			if cancelled(err) {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var folderForgetCmd = &cobra.Command{
	Use:   "forget <uid>",
	Short: "Forget the folder bound to a board",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(nil, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		removed, err := a.store.RemoveFolder(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !removed {
			fmt.Fprintf(os.Stderr, "No folder bound to %s\n", args[0])
			os.Exit(1)
		}
		fmt.Printf("Forgot folder for %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderShowCmd, folderSetCmd, folderForgetCmd)

	folderSetCmd.Flags().DurationP("timeout", "t", 30*time.Second, "Give up after this long, including device selection")
}

func bindFolder(path string, timeout time.Duration) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	a, err := newApp(models.NewProgramChooser(nil, nil), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	w := a.workflow(true)
	if err := w.Connect(ctx); err != nil {
		return err
	}
	defer w.Disconnect(context.Background())

	uid := w.Identity()
	if uid == "" {
		return errors.New("board did not report a UID, folder would not be remembered")
	}
	if err := w.SelectFolder(ctx, abs); err != nil {
		return err
	}
	fmt.Printf("Bound %s to board %s\n", abs, uid)
	return nil
}
