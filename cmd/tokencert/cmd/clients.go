package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/tokencert/clients"
	bboltclients "github.com/jmcleod/tokencert/clients/bbolt"
)

var clientsDataDir string

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage the local client registry",
}

var clientsAddCmd = &cobra.Command{
	Use:   "add <instance/class/code[/subsystem]>",
	Short: "Register a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := clients.ParseID(args[0])
		if err != nil {
			return err
		}
		reg, err := bboltclients.NewRegistryFromFile(clientsDataDir+"/clients.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open client registry: %w", err)
		}
		defer reg.Close()

		if err := reg.Add(id); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", id)
		return nil
	},
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := bboltclients.NewRegistryFromFile(clientsDataDir+"/clients.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open client registry: %w", err)
		}
		defer reg.Close()

		ids, err := reg.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.PersistentFlags().StringVar(&clientsDataDir, "data-dir", "./data", "Directory for persistent data")
}
