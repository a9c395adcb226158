package partitions

import (
	"fmt"
	"math"

	"github.com/notargets/simplicial/utils"
)

// Partition represents a collection of cells that are processed together
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Cell membership
	Cells    []int // Global cell indices in this partition, ascending
	NumCells int   // Actual number of cells
	MaxCells int   // Padded size shared by all partitions
}

// PartitionLayout manages the complete mesh decomposition
type PartitionLayout struct {
	// All partitions in the mesh
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumCells) across all partitions
	TotalCells    int // Sum of all actual cells across partitions
	NumPartitions int // Total number of partitions

	// Cell to partition mapping
	EToP []int // Length TotalCells: cell k belongs to partition EToP[k]
}

// NewLayout builds a layout from a cell to partition mapping.
func NewLayout(eToP []int, numPartitions int) (*PartitionLayout, error) {
	if numPartitions < 1 {
		return nil, fmt.Errorf("need at least one partition, got %d", numPartitions)
	}
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i].ID = i
	}
	for k, p := range eToP {
		if p < 0 || p >= numPartitions {
			return nil, fmt.Errorf("cell %d assigned to partition %d of %d", k, p, numPartitions)
		}
		partitions[p].Cells = append(partitions[p].Cells, k)
		partitions[p].NumCells++
	}

	kpartMax := 0
	for _, p := range partitions {
		kpartMax = max(kpartMax, p.NumCells)
	}
	for i := range partitions {
		partitions[i].MaxCells = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalCells:    len(eToP),
		NumPartitions: numPartitions,
		EToP:          eToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// GetPartition returns the partition containing cell k
func (pl *PartitionLayout) GetPartition(cell int) int {
	if cell < 0 || cell >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[cell]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("%d partitions stored, NumPartitions %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.EToP) != pl.TotalCells {
		return fmt.Errorf("EToP length %d != TotalCells %d", len(pl.EToP), pl.TotalCells)
	}

	actualMax, total := 0, 0
	for i, p := range pl.Partitions {
		if p.ID != i {
			return fmt.Errorf("partition at %d has ID %d", i, p.ID)
		}
		if p.NumCells != len(p.Cells) {
			return fmt.Errorf("partition %d: NumCells %d != %d cells", p.ID, p.NumCells, len(p.Cells))
		}
		if p.MaxCells != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxCells %d != KpartMax %d",
				p.ID, p.MaxCells, pl.KpartMax)
		}
		for _, k := range p.Cells {
			if pl.GetPartition(k) != p.ID {
				return fmt.Errorf("partition %d lists cell %d owned by %d", p.ID, k, pl.GetPartition(k))
			}
		}
		actualMax = max(actualMax, p.NumCells)
		total += p.NumCells
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	if total != pl.TotalCells {
		return fmt.Errorf("partitions hold %d cells, TotalCells %d", total, pl.TotalCells)
	}
	return nil
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinCells:      math.MaxInt32,
		AvgCells:      float64(pl.TotalCells) / float64(pl.NumPartitions),
	}

	for _, p := range pl.Partitions {
		stats.MinCells = min(stats.MinCells, p.NumCells)
		stats.MaxCells = max(stats.MaxCells, p.NumCells)
	}

	if stats.AvgCells > 0 {
		stats.Imbalance = float64(stats.MaxCells) / stats.AvgCells
	}

	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinCells      int
	MaxCells      int
	AvgCells      float64
	Imbalance     float64 // MaxCells / AvgCells
}

// FaceCommunication describes a face that needs inter-partition communication
type FaceCommunication struct {
	LocalCell       int // Cell index within partition
	LocalFace       int // Face index within cell
	RemotePartition int // Target partition ID
	RemoteCell      int // Global cell ID in remote partition
	RemoteFace      int // Face index in remote cell
}

// AnalyzeCommunication lists, per partition, the faces whose neighbor lives
// in another partition.
func (pl *PartitionLayout) AnalyzeCommunication(dg *DualGraph) map[int][]FaceCommunication {
	patterns := make(map[int][]FaceCommunication)

	for partID, partition := range pl.Partitions {
		var faceComm []FaceCommunication

		for localCell, globalCell := range partition.Cells {
			for face := 0; face < dg.Nfaces; face++ {
				neighbor := dg.EToE[globalCell][face]
				if neighbor == globalCell {
					continue
				}

				neighborPart := pl.GetPartition(neighbor)
				if neighborPart != partID && neighborPart >= 0 {
					faceComm = append(faceComm, FaceCommunication{
						LocalCell:       localCell,
						LocalFace:       face,
						RemotePartition: neighborPart,
						RemoteCell:      neighbor,
						RemoteFace:      dg.EToF[globalCell][face],
					})
				}
			}
		}
		patterns[partID] = faceComm
	}

	return patterns
}

// Connector builds the pick/place index sets for exchanging nfp values per
// face between the partitions of the layout.
func (pl *PartitionLayout) Connector(dg *DualGraph, nfp int) (*utils.FaceConnector, error) {
	if dg.NCells != pl.TotalCells {
		return nil, fmt.Errorf("dual graph has %d cells, layout %d", dg.NCells, pl.TotalCells)
	}
	fc, err := utils.NewFaceConnector(nfp, dg.EToE, dg.EToF, pl.EToP)
	if err != nil {
		return nil, err
	}
	if err := fc.Verify(); err != nil {
		return nil, fmt.Errorf("face connector: %w", err)
	}
	return fc, nil
}
