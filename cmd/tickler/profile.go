package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amonks/tickler/docstore"
	internalstrings "github.com/amonks/tickler/internal/strings"
	"github.com/amonks/tickler/task"
)

// Profile document fields.
const (
	profileFieldName  = "username"
	profileFieldPhoto = "photoURL"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the user's profile",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace the user's profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileSet,
}

var (
	profileName  string
	profilePhoto string
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd)

	profileSetCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileSetCmd.Flags().StringVar(&profilePhoto, "photo", "", "Photo URL")
	_ = profileSetCmd.MarkFlagRequired("name")
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.docs.Get(cmd.Context(), a.userID, task.ProfileDocumentID)
	if errors.Is(err, docstore.ErrNotFound) {
		fmt.Printf("No profile for %s. Use 'tickler profile set --name NAME' to create one.\n", a.userID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("User:  %s\n", a.userID)
	fmt.Printf("Name:  %s\n", profileString(doc.Fields, profileFieldName))
	fmt.Printf("Photo: %s\n", profileString(doc.Fields, profileFieldPhoto))
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	if internalstrings.IsBlank(profileName) {
		return fmt.Errorf("name cannot be empty")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fields := docstore.Fields{profileFieldName: profileName, profileFieldPhoto: profilePhoto}
	if err := a.docs.Put(cmd.Context(), a.userID, task.ProfileDocumentID, fields); err != nil {
		return err
	}
	fmt.Printf("Saved profile for %s\n", a.userID)
	return nil
}

func profileString(fields docstore.Fields, key string) string {
	value, _ := fields[key].(string)
	if value == "" {
		return "-"
	}
	return value
}
