package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var selectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Toggle a product in the selection",
	Long: `Toggle a product in the current selection by its catalog id. Selecting
an already-selected product removes it. The selection persists across runs.

Examples:
  routina select 3
  routina select 12`,
	Args: cobra.ExactArgs(1),
	RunE: runSelect,
}

var selectionsCmd = &cobra.Command{
	Use:   "selections",
	Short: "Show the currently selected products",
	RunE:  runSelections,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all selected products",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

func runSelect(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}

	if _, err := loadSession(cmd.Context()); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	product, ok, err := cache.Find(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if !ok {
		return fmt.Errorf("no product with id %d", id)
	}

	if selections.Toggle(id, product) {
		fmt.Printf("Selected: %s (%s)\n", product.Name, product.Brand)
	} else {
		fmt.Printf("Removed: %s (%s)\n", product.Name, product.Brand)
	}
	fmt.Printf("%d product(s) selected.\n", selections.Len())
	return nil
}

func runSelections(cmd *cobra.Command, args []string) error {
	if _, err := loadSession(cmd.Context()); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	products := selections.Products()
	if len(products) == 0 {
		fmt.Println("No products selected.")
		return nil
	}

	fmt.Printf("Selected products (%d):\n\n", len(products))
	for _, p := range products {
		fmt.Printf("- %3d  %s - %s (%s)\n", p.ID, p.Name, p.Brand, p.Category)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	if _, err := loadSession(cmd.Context()); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	if selections.Len() == 0 {
		fmt.Println("No products selected.")
		return nil
	}

	if !clearYes {
		fmt.Print("Clear all selected products? This cannot be undone. [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	selections.Clear()
	fmt.Println("Selection cleared.")
	return nil
}
