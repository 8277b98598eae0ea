package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"booktracker/internal/book"
	"booktracker/internal/user"
	"booktracker/pkg/database"
)

var importFlags struct {
	Username string
	File     string
}

var importCmd = &cobra.Command{
	Use:     "import",
	Short:   "Import a JSON array of books for one user",
	Example: `booktracker import --user alice --file books.json`,
	RunE:    importBooks,
}

func init() {
	importCmd.Flags().StringVarP(&importFlags.Username, "user", "u", "", "Username that will own the imported books")
	importCmd.Flags().StringVarP(&importFlags.File, "file", "f", "", "Path to a JSON array of books")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func importBooks(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inputs, err := database.LoadBooksFromJSON(importFlags.File)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	owner, err := user.NewRepo(db).FindByUsername(cmd.Context(), importFlags.Username)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("user %q not found", importFlags.Username)
	}

	books, err := book.NewService(book.NewRepo(db)).Import(cmd.Context(), owner.ID, inputs)
	if err != nil {
		return err
	}

	log.Info("import finished", "user", owner.Username, "file", importFlags.File, "books", len(books))
	return nil
}
