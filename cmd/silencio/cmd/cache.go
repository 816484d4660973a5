package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/silencio/internal/adapters/bbolt"
	"github.com/corey/silencio/internal/app"
	"github.com/corey/silencio/internal/domain/inventory"
)

var cacheForce bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached classifier inventories",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached inventories",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Print one cached inventory as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheShow,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>...",
	Short: "Delete cached inventories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCacheDelete,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached inventory",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheForce, "force", false, "Skip confirmation prompt")
	cacheCmd.AddCommand(cacheListCmd, cacheShowCmd, cacheDeleteCmd, cacheClearCmd)
}

// openCache opens the bbolt cache directly. ok is false when no cache exists yet.
func openCache() (store *bbolt.Store, ok bool, err error) {
	root := projectRoot()
	paths := app.NewPaths(root)
	if _, err := os.Stat(paths.DB); os.IsNotExist(err) {
		return nil, false, nil
	}
	store, err = bbolt.NewStore(paths.DB)
	if err != nil {
		if isDBLockError(err) {
			return nil, false, fmt.Errorf("%s", diagnoseDBLock(root))
		}
		return nil, false, fmt.Errorf("open store: %w", err)
	}
	return store, true, nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	store, ok, err := openCache()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("⚡ no cache yet")
		return nil
	}
	defer store.Close()

	list, err := store.ListInventories()
	if err != nil {
		return err
	}
	fmt.Print(formatCacheList(list))
	return nil
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	store, ok, err := openCache()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no cached inventory %s", args[0])
	}
	defer store.Close()

	stored, err := store.LoadInventory(args[0])
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("no cached inventory %s", args[0])
	}
	data, err := inventory.Encode(inventory.FromStored(stored), inventory.FormatYAML)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	store, ok, err := openCache()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("⚡ no cache yet")
		return nil
	}
	defer store.Close()

	for _, id := range args {
		if err := store.DeleteInventory(id); err != nil {
			return err
		}
	}
	fmt.Printf("⚡ deleted %d entries\n", len(args))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if !cacheForce {
		fmt.Print("⚠ This will delete every cached inventory for this project. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	store, ok, err := openCache()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("⚡ no cache to clear")
		return nil
	}
	defer store.Close()

	if err := store.Wipe(); err != nil {
		return err
	}
	fmt.Println("⚡ cache cleared")
	return nil
}
