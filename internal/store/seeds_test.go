package store_test

import (
	"testing"

	"github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

func TestDefaultTargetCellsBuildCleanly(test *testing.T) {
	test.Parallel()
	cells, err := store.DefaultTargetCells()
	if err != nil {
		test.Fatalf("default cells: %v", err)
	}
	if len(cells) == 0 {
		test.Fatalf("expected a non-empty default board")
	}
	catalog, err := betflow.NewCatalog(cells)
	if err != nil {
		test.Fatalf("default board does not index cleanly: %v", err)
	}
	if catalog.Size() != len(cells) {
		test.Fatalf("expected %d catalog cells, got %d", len(cells), catalog.Size())
	}
	for _, cell := range cells {
		if cell.Multiplier <= 0 {
			test.Fatalf("cell %s has non-positive multiplier %v", cell.ID.String(), cell.Multiplier)
		}
	}
}
