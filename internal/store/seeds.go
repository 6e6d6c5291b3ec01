package store

import "github.com/AmaanSayyad/Arbnomo/pkg/betflow"

// defaultBoard is the wager board offered when a deployment starts with an
// empty catalog. Positions run left to right, low risk first.
var defaultBoard = []struct {
	id         string
	label      string
	multiplier float64
}{
	{id: "cell-1", label: "1.20x", multiplier: 1.2},
	{id: "cell-2", label: "1.50x", multiplier: 1.5},
	{id: "cell-3", label: "2.00x", multiplier: 2},
	{id: "cell-4", label: "3.00x", multiplier: 3},
	{id: "cell-5", label: "5.00x", multiplier: 5},
	{id: "cell-6", label: "10.00x", multiplier: 10},
	{id: "cell-7", label: "25.00x", multiplier: 25},
	{id: "cell-8", label: "50.00x", multiplier: 50},
}

// DefaultTargetCells returns the built-in board used to seed an empty
// catalog on first boot. SeedCatalog leaves a populated catalog alone, so
// operators can replace the board without fighting the seeder.
func DefaultTargetCells() ([]betflow.TargetCell, error) {
	cells := make([]betflow.TargetCell, 0, len(defaultBoard))
	for _, seed := range defaultBoard {
		id, err := betflow.NewTargetID(seed.id)
		if err != nil {
			return nil, err
		}
		cell, err := betflow.NewTargetCell(id, seed.label, seed.multiplier)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}
