package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"notes-app/src/config"
	"notes-app/src/domain"
	"notes-app/src/logger"
	"notes-app/src/usecase"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const cliOwner = "cli"

var (
	accessToken string
	verbose     bool
	noteName    string
	noteDesc    string
	imagePath   string
	deleteName  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes with resolved image URLs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		notes, ctx, cancel := cliUsecase()
		defer cancel()

		list, err := notes.FetchNotes(ctx, cliOwner)
		if err != nil {
			fatal("Failed to list notes", err)
		}
		printNotes(cmd.OutOrStdout(), list)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note, uploading an optional image first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		notes, ctx, cancel := cliUsecase()
		defer cancel()

		req := usecase.CreateNoteRequest{Name: noteName, Description: noteDesc}
		if imagePath != "" {
			image, err := loadImageFile(imagePath)
			if err != nil {
				fatal("Failed to read image", err)
			}
			req.Image = image
		}

		note, err := notes.CreateNote(ctx, cliOwner, req)
		if err != nil {
			fatal("Failed to create note", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note created: %s\n", note.ID)
		printNotes(cmd.OutOrStdout(), notes.CurrentNotes(cliOwner))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note and its stored image",
	Long:  `Delete removes the object stored under --name, then deletes the note record.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		notes, ctx, cancel := cliUsecase()
		defer cancel()

		if err := notes.DeleteNote(ctx, cliOwner, usecase.DeleteNoteRequest{ID: args[0], Name: deleteName}); err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", args[0])
	},
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, createCmd, deleteCmd} {
		cmd.Flags().StringVar(&accessToken, "token", os.Getenv("NOTES_TOKEN"), "access token forwarded to the GraphQL API")
		cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout")
		rootCmd.AddCommand(cmd)
	}

	createCmd.Flags().StringVar(&noteName, "name", "", "note name")
	createCmd.Flags().StringVar(&noteDesc, "description", "", "note description")
	createCmd.Flags().StringVar(&imagePath, "image", "", "path to an image file")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("description")

	deleteCmd.Flags().StringVar(&deleteName, "name", "", "note name (storage key of its image)")
}

// cliUsecase CLI用にユースケースを組み立てる
func cliUsecase() (usecase.NoteUsecase, context.Context, context.CancelFunc) {
	cfg := config.LoadConfig()

	log := logger.InitDiscardLogger(logrus.WarnLevel)
	if verbose {
		log.SetOutput(os.Stdout)
		log.SetLevel(logrus.DebugLevel)
	}

	components, err := buildComponents(cfg, log)
	if err != nil {
		fatal("Failed to initialize", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if accessToken != "" {
		ctx = domain.WithSession(ctx, &domain.Session{Subject: cliOwner, Token: accessToken})
	}
	return components.Notes, ctx, cancel
}

func loadImageFile(path string) (*domain.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.ImageFile{
		Filename:    filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func printNotes(out io.Writer, notes []domain.Note) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tIMAGE")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Name, n.Description, n.ImageURL)
	}
	w.Flush()
}
