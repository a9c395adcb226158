package utils

import (
	"fmt"
)

// FaceConnector manages pick and place indices for partitioned meshes.
// Every face of every cell carries Nfp values. A partition keeps its own
// face values in an M buffer and receives its neighbors' values in a P
// buffer; both are laid out as localCell*Nfaces*Nfp + face*Nfp + point.
type FaceConnector struct {
	// Mesh dimensions
	NumPartitions int
	K             int // Total cells
	Nfaces        int // Faces per cell
	Nfp           int // Values per face

	// Input connectivity
	EToE [][]int // Cell → neighbor cell, self on the boundary
	EToF [][]int // Cell → neighbor face, self on the boundary
	EToP []int   // Cell → partition mapping

	// Partition mappings
	CellsPerPartition []int         // Cells per partition
	GlobalToLocalCell []map[int]int // [partition][globalCell] → localCell
	LocalToGlobalCell [][]int       // [partition][localCell] → globalCell

	// Pick/Place indices per partition
	PickIndices  [][]PickBuffer  // [sourcePartition][targetPartition]
	PlaceIndices [][]PlaceBuffer // [targetPartition][sourcePartition]
}

// PickBuffer contains indices for gathering values to send
type PickBuffer struct {
	Indices         []int // Source M buffer positions
	TargetPartition int
}

// PlaceBuffer contains indices for scattering received values
type PlaceBuffer struct {
	Indices         []int // P buffer positions
	SourcePartition int
}

// NewFaceConnector creates a face connector from cell connectivity
func NewFaceConnector(Nfp int, EToE, EToF [][]int, EToP []int) (*FaceConnector, error) {
	K := len(EToE)
	if K == 0 || Nfp <= 0 {
		return nil, fmt.Errorf("invalid dimensions: K=%d, Nfp=%d", K, Nfp)
	}
	Nfaces := len(EToE[0])
	if Nfaces == 0 {
		return nil, fmt.Errorf("cells have no faces")
	}
	if len(EToF) != K {
		return nil, fmt.Errorf("EToF length %d does not match K=%d", len(EToF), K)
	}
	if len(EToP) != K {
		return nil, fmt.Errorf("EToP length %d does not match K=%d", len(EToP), K)
	}

	// Determine number of partitions
	numPartitions := 0
	for k, p := range EToP {
		if p < 0 {
			return nil, fmt.Errorf("cell %d has negative partition %d", k, p)
		}
		if p+1 > numPartitions {
			numPartitions = p + 1
		}
	}
	for k := range EToE {
		if len(EToE[k]) != Nfaces || len(EToF[k]) != Nfaces {
			return nil, fmt.Errorf("cell %d has %d/%d faces, want %d",
				k, len(EToE[k]), len(EToF[k]), Nfaces)
		}
		for f, n := range EToE[k] {
			if n < 0 || n >= K || EToF[k][f] < 0 || EToF[k][f] >= Nfaces {
				return nil, fmt.Errorf("cell %d face %d: neighbor (%d, %d) out of range",
					k, f, n, EToF[k][f])
			}
		}
	}

	fc := &FaceConnector{
		NumPartitions: numPartitions,
		K:             K,
		Nfaces:        Nfaces,
		Nfp:           Nfp,
		EToE:          EToE,
		EToF:          EToF,
		EToP:          EToP,
	}

	fc.buildPartitionMappings()
	fc.initializeBuffers()
	fc.BuildIndices()

	return fc, nil
}

// buildPartitionMappings creates bidirectional mappings between global and local cell numbering
func (fc *FaceConnector) buildPartitionMappings() {
	fc.CellsPerPartition = make([]int, fc.NumPartitions)
	for _, p := range fc.EToP {
		fc.CellsPerPartition[p]++
	}

	fc.GlobalToLocalCell = make([]map[int]int, fc.NumPartitions)
	fc.LocalToGlobalCell = make([][]int, fc.NumPartitions)
	for p := 0; p < fc.NumPartitions; p++ {
		fc.GlobalToLocalCell[p] = make(map[int]int)
		fc.LocalToGlobalCell[p] = make([]int, 0, fc.CellsPerPartition[p])
	}

	for globalCell := 0; globalCell < fc.K; globalCell++ {
		partition := fc.EToP[globalCell]
		localCell := len(fc.LocalToGlobalCell[partition])

		fc.GlobalToLocalCell[partition][globalCell] = localCell
		fc.LocalToGlobalCell[partition] = append(fc.LocalToGlobalCell[partition], globalCell)
	}
}

// initializeBuffers creates empty pick and place buffer structures
func (fc *FaceConnector) initializeBuffers() {
	fc.PickIndices = make([][]PickBuffer, fc.NumPartitions)
	fc.PlaceIndices = make([][]PlaceBuffer, fc.NumPartitions)

	for p := 0; p < fc.NumPartitions; p++ {
		fc.PickIndices[p] = make([]PickBuffer, fc.NumPartitions)
		fc.PlaceIndices[p] = make([]PlaceBuffer, fc.NumPartitions)

		for q := 0; q < fc.NumPartitions; q++ {
			fc.PickIndices[p][q] = PickBuffer{TargetPartition: q}
			fc.PlaceIndices[p][q] = PlaceBuffer{SourcePartition: q}
		}
	}
}

// faceIndex is the buffer position of a face value.
func (fc *FaceConnector) faceIndex(localCell, face, point int) int {
	return localCell*fc.Nfaces*fc.Nfp + face*fc.Nfp + point
}

// BuildIndices constructs pick and place indices for all partitions. A
// boundary face picks its own values.
func (fc *FaceConnector) BuildIndices() {
	for p := 0; p < fc.NumPartitions; p++ {
		for localCell := 0; localCell < fc.CellsPerPartition[p]; localCell++ {
			globalCell := fc.LocalToGlobalCell[p][localCell]

			for face := 0; face < fc.Nfaces; face++ {
				neighbor := fc.EToE[globalCell][face]
				neighborFace := fc.EToF[globalCell][face]
				sourcePartition := fc.EToP[neighbor]
				localNeighbor := fc.GlobalToLocalCell[sourcePartition][neighbor]

				for fp := 0; fp < fc.Nfp; fp++ {
					fc.PickIndices[sourcePartition][p].Indices = append(
						fc.PickIndices[sourcePartition][p].Indices,
						fc.faceIndex(localNeighbor, neighborFace, fp))

					fc.PlaceIndices[p][sourcePartition].Indices = append(
						fc.PlaceIndices[p][sourcePartition].Indices,
						fc.faceIndex(localCell, face, fp))
				}
			}
		}
	}
}

// BufferSize returns the length of partition p's M and P buffers.
func (fc *FaceConnector) BufferSize(p int) int {
	if p < 0 || p >= fc.NumPartitions {
		return 0
	}
	return fc.CellsPerPartition[p] * fc.Nfaces * fc.Nfp
}

// GetPickIndices returns pick indices for sending from source to target partition
func (fc *FaceConnector) GetPickIndices(sourcePartition, targetPartition int) []int {
	if sourcePartition < 0 || sourcePartition >= fc.NumPartitions ||
		targetPartition < 0 || targetPartition >= fc.NumPartitions {
		return nil
	}
	return fc.PickIndices[sourcePartition][targetPartition].Indices
}

// GetPlaceIndices returns place indices for target partition receiving from source
func (fc *FaceConnector) GetPlaceIndices(targetPartition, sourcePartition int) []int {
	if targetPartition < 0 || targetPartition >= fc.NumPartitions ||
		sourcePartition < 0 || sourcePartition >= fc.NumPartitions {
		return nil
	}
	return fc.PlaceIndices[targetPartition][sourcePartition].Indices
}

// Exchange fills each partition's P buffer from the M buffers of all
// partitions: pick, hand over, place.
func (fc *FaceConnector) Exchange(M [][]float64) ([][]float64, error) {
	if len(M) != fc.NumPartitions {
		return nil, fmt.Errorf("got %d M buffers for %d partitions", len(M), fc.NumPartitions)
	}
	P := make([][]float64, fc.NumPartitions)
	for p := range P {
		if len(M[p]) != fc.BufferSize(p) {
			return nil, fmt.Errorf("partition %d: M buffer length %d != %d", p, len(M[p]), fc.BufferSize(p))
		}
		P[p] = make([]float64, fc.BufferSize(p))
	}

	for p := 0; p < fc.NumPartitions; p++ {
		for q := 0; q < fc.NumPartitions; q++ {
			pick := fc.GetPickIndices(p, q)
			place := fc.GetPlaceIndices(q, p)
			for i, idx := range pick {
				P[q][place[i]] = M[p][idx]
			}
		}
	}
	return P, nil
}

// Verify checks index validity and conservation properties
func (fc *FaceConnector) Verify() error {
	// Local validity: every index lands inside its partition's buffer
	for p := 0; p < fc.NumPartitions; p++ {
		size := fc.BufferSize(p)
		for q := 0; q < fc.NumPartitions; q++ {
			for _, idx := range fc.PickIndices[p][q].Indices {
				if idx < 0 || idx >= size {
					return fmt.Errorf("invalid pick index %d for partition %d (max %d)",
						idx, p, size-1)
				}
			}
			for _, idx := range fc.PlaceIndices[p][q].Indices {
				if idx < 0 || idx >= size {
					return fmt.Errorf("invalid place index %d for partition %d (max %d)",
						idx, p, size-1)
				}
			}
		}
	}

	// Correspondence: pick and place arrays have same length
	for p := 0; p < fc.NumPartitions; p++ {
		for q := 0; q < fc.NumPartitions; q++ {
			pickLen := len(fc.PickIndices[p][q].Indices)
			placeLen := len(fc.PlaceIndices[q][p].Indices)
			if pickLen != placeLen {
				return fmt.Errorf("length mismatch: pick[%d][%d]=%d, place[%d][%d]=%d",
					p, q, pickLen, q, p, placeLen)
			}
		}
	}

	// Conservation: total pick operations equals total face values
	totalPicks := 0
	totalFacePoints := 0
	for p := 0; p < fc.NumPartitions; p++ {
		for q := 0; q < fc.NumPartitions; q++ {
			totalPicks += len(fc.PickIndices[p][q].Indices)
		}
		totalFacePoints += fc.BufferSize(p)
	}
	if totalPicks != totalFacePoints {
		return fmt.Errorf("conservation error: total picks %d != total face points %d",
			totalPicks, totalFacePoints)
	}

	return nil
}
