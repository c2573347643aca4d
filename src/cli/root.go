package cli

import (
	"fmt"
	"os"

	"notes-app/src/config"
	"notes-app/src/gateway"
	"notes-app/src/state"
	"notes-app/src/storage"
	"notes-app/src/usecase"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Notes app backed by a GraphQL API and object storage",
	Long: `notes serves the notes web application and offers the same list, create
and delete operations from the command line.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if envFile != "" {
			config.LoadDotEnv(envFile)
		} else {
			config.LoadDotEnv()
		}
	},
}

// Execute ルートコマンドを実行
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env if present)")
}

// Components 設定から組み立てたアプリケーション部品
type Components struct {
	Gateway  *gateway.GraphQLGateway
	Store    *storage.S3ObjectStore
	LogStore *storage.S3ObjectStore
	Registry *state.Registry
	Notes    usecase.NoteUsecase
}

// buildComponents ゲートウェイ・オブジェクトストア・ユースケースを組み立てる
func buildComponents(cfg *config.Config, log *logrus.Logger) (*Components, error) {
	store, err := storage.NewS3ObjectStore(&storage.S3Config{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		UseSSL:          cfg.S3.UseSSL,
		KeyPrefix:       cfg.S3.KeyPrefix,
		PresignTTL:      cfg.S3.PresignTTL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("オブジェクトストアの初期化に失敗: %w", err)
	}

	gw := gateway.NewGraphQLGateway(&gateway.Config{
		Endpoint: cfg.GraphQL.Endpoint,
		APIKey:   cfg.GraphQL.APIKey,
		Timeout:  cfg.GraphQL.Timeout,
	}, log)

	registry := state.NewRegistry()
	notes := usecase.NewNoteUsecase(gw, store, registry, usecase.Options{
		CompensateOrphanUpload: cfg.Notes.CompensateOrphanUpload,
		RollbackFailedDelete:   cfg.Notes.RollbackFailedDelete,
	}, log)

	return &Components{
		Gateway:  gw,
		Store:    store,
		LogStore: store.WithKeyPrefix(cfg.Log.UploadPrefix),
		Registry: registry,
		Notes:    notes,
	}, nil
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
