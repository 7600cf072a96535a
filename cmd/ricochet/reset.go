package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetFlags struct {
	force bool
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all recorded injections and callbacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset()
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetFlags.force, "force", false, "skip the confirmation prompt")
}

func runReset() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if !resetFlags.force {
		fmt.Printf("Delete all data in %s? [y/N] ", st.Path())
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.Reset(); err != nil {
		return err
	}
	fmt.Println("Store reset.")
	return nil
}
