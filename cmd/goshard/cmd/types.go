package cmd

import (
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goshard/internal/discovery"
	"github.com/dbsmedya/goshard/internal/logger"
)

var noColor bool

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List discovered entity types",
	Long: `Types scans the base directory for assembly manifests (*.types.yaml),
applies the assembly name filter from the configuration and prints every
candidate entity type.

Assemblies starting with "System." or "Microsoft." are never scanned.
Manifests that cannot be read are skipped.

Example:
  goshard types --config goshard.yaml --base-dir ./manifests`,
	RunE: runTypes,
}

func init() {
	typesCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if noColor {
		color.Disable()
	}

	dir := resolveBaseDir(cfg.Sharding.BaseDir)
	cache := discovery.NewCache(
		discovery.NewDirSource(dir),
		discovery.Filter{AssemblyNames: cfg.Sharding.AssemblyNames},
		logger.NewNop(),
	)
	types := cache.GetAllEntityTypes()

	if len(types) == 0 {
		cmd.Printf("No entity types found in %s\n", dir)
		return nil
	}

	perAssembly := orderedmap.NewOrderedMap[string, int]()
	rows := make([][]string, 0, len(types))
	for _, td := range types {
		n, _ := perAssembly.Get(td.Assembly)
		perAssembly.Set(td.Assembly, n+1)

		table := td.Table
		if table == "" {
			table = "-"
		}
		rows = append(rows, []string{td.Assembly, td.Name, table})
	}

	header := []string{"ASSEMBLY", "TYPE", "TABLE"}
	widths := columnWidths(header, rows)

	cmd.Printf("Entity types in %s:\n\n", dir)
	cmd.Println(color.Bold.Sprint(formatRow(header, widths)))
	for _, row := range rows {
		cmd.Println(formatRow(row, widths))
	}

	cmd.Printf("\nTotal: %d type(s) in %d assembly(ies)\n", len(types), perAssembly.Len())
	for el := perAssembly.Front(); el != nil; el = el.Next() {
		cmd.Printf("  %s %d\n", color.Cyan.Sprint(runewidth.FillRight(el.Key, widths[0])), el.Value)
	}
	return nil
}

// columnWidths returns the display width of each column.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			padded[i] = cell
			continue
		}
		padded[i] = runewidth.FillRight(cell, widths[i])
	}
	return strings.Join(padded, "  ")
}
