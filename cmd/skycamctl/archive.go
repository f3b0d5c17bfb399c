package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/storage"
)

var archiveOutDir string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the fused-image archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list [profile-id]",
	Short: "List archived fused images, optionally for one profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runArchiveList,
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <object-key>...",
	Short: "Download archived fused images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArchiveGet,
}

func init() {
	archiveGetCmd.Flags().StringVarP(&archiveOutDir, "out", "o", ".", "Directory to download into")
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveGetCmd)
	rootCmd.AddCommand(archiveCmd)
}

func newArchiveStore() (*storage.MinIOStore, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("connect archive: %w", err)
	}
	return store, nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := newArchiveStore()
	if err != nil {
		return err
	}

	prefix := ""
	if len(args) == 1 {
		prefix = args[0] + "/"
	}
	keys, err := store.ListObjects(cmd.Context(), prefix)
	if err != nil {
		return fmt.Errorf("list archive: %w", err)
	}
	if len(keys) == 0 {
		fmt.Println("Archive is empty")
		return nil
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func runArchiveGet(cmd *cobra.Command, args []string) error {
	store, err := newArchiveStore()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(archiveOutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, key := range args {
		data, err := store.GetObject(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", key, err)
		}
		dest := filepath.Join(archiveOutDir, filepath.Base(key))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Printf("Fetched %s (%d bytes)\n", dest, len(data))
	}
	return nil
}
