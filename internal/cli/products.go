package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfierros/routina/internal/catalog"
)

var (
	productsCategory string
	productsSearch   string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List or filter the product catalog",
	Long: `List products from the catalog, optionally filtered by category and a
case-insensitive search over name, brand and description.

Examples:
  routina products
  routina products --category cleanser
  routina products --search "hyaluronic"
  routina products -c moisturizer -s night`,
	RunE: runProducts,
}

func init() {
	productsCmd.Flags().StringVarP(&productsCategory, "category", "c", "", "filter by category")
	productsCmd.Flags().StringVarP(&productsSearch, "search", "s", "", "search name, brand and description")
}

func runProducts(cmd *cobra.Command, args []string) error {
	products, err := loadSession(cmd.Context())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	shown := products
	if productsCategory != "" || productsSearch != "" {
		shown = catalog.Filter(products, productsCategory, productsSearch)
	}

	if len(shown) == 0 {
		fmt.Println("No products match.")
		return nil
	}

	fmt.Printf("Products (%d):\n\n", len(shown))
	for _, p := range shown {
		mark := " "
		if selections.Contains(p.ID) {
			mark = "x"
		}
		fmt.Printf("[%s] %3d  %s - %s (%s)\n", mark, p.ID, p.Name, p.Brand, p.Category)
		if verbose && p.Description != "" {
			fmt.Printf("        %s\n", p.Description)
		}
	}

	if productsCategory == "" && productsSearch == "" {
		fmt.Printf("\nCategories: %s\n", strings.Join(catalog.Categories(products), ", "))
	}
	return nil
}
