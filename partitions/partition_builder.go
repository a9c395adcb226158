package partitions

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// Painter assigns every cell of a dual graph to one of n partitions. It is
// the boundary an external graph partitioner plugs into.
type Painter interface {
	Paint(dg *DualGraph, n int) ([]int, error)
}

// PainterFunc adapts a function to the Painter interface.
type PainterFunc func(dg *DualGraph, n int) ([]int, error)

func (f PainterFunc) Paint(dg *DualGraph, n int) ([]int, error) { return f(dg, n) }

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	// Mesh connectivity
	Graph *DualGraph

	// Partitioning parameters. NumPartitions wins over TargetPartitionSize
	// when both are set.
	NumPartitions       int
	TargetPartitionSize int // Desired cells per partition
	Strategy            PartitionStrategy
	Painter             Painter // Used by External

	Logger logrus.FieldLogger
}

// PartitionStrategy defines how cells are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive cells
	RoundRobin                              // Distribute cyclically

	// Graph-based strategies
	GraphPartition // Breadth-first growth over the dual graph
	External       // Delegate to the Painter
)

var strategyNames = []string{"block", "roundrobin", "graph", "external"}

func (s PartitionStrategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy maps a strategy name onto its value.
func ParseStrategy(name string) (PartitionStrategy, error) {
	for i, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return PartitionStrategy(i), nil
		}
	}
	return BlockPartition, fmt.Errorf("unknown partition strategy %q, want one of %s",
		name, strings.Join(strategyNames, ", "))
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Graph == nil {
		return nil, fmt.Errorf("partition builder has no dual graph")
	}
	numPartitions, err := pb.calculateNumPartitions()
	if err != nil {
		return nil, err
	}

	eToP, err := pb.partitionCells(numPartitions)
	if err != nil {
		return nil, err
	}

	layout, err := NewLayout(eToP, numPartitions)
	if err != nil {
		return nil, err
	}

	stats := layout.PartitionStatistics()
	pb.logger().WithFields(logrus.Fields{
		"strategy":   pb.Strategy,
		"partitions": numPartitions,
		"cells":      layout.TotalCells,
		"imbalance":  stats.Imbalance,
	}).Debug("partitions built")

	return layout, nil
}

func (pb *PartitionBuilder) logger() logrus.FieldLogger {
	if pb.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		return l
	}
	return pb.Logger
}

// calculateNumPartitions determines the partition count
func (pb *PartitionBuilder) calculateNumPartitions() (int, error) {
	if pb.NumPartitions > 0 {
		return pb.NumPartitions, nil
	}
	if pb.TargetPartitionSize <= 0 {
		return 0, fmt.Errorf("need a partition count or a target partition size")
	}
	numPartitions := int(math.Ceil(float64(pb.Graph.NCells) / float64(pb.TargetPartitionSize)))

	// Ensure at least one partition
	return max(numPartitions, 1), nil
}

// partitionCells assigns cells to partitions
func (pb *PartitionBuilder) partitionCells(numPartitions int) ([]int, error) {
	n := pb.Graph.NCells
	eToP := make([]int, n)

	switch pb.Strategy {
	case BlockPartition:
		cellsPerPartition := int(math.Ceil(float64(n) / float64(numPartitions)))
		for i := 0; i < n; i++ {
			eToP[i] = min(i/cellsPerPartition, numPartitions-1)
		}

	case RoundRobin:
		for i := 0; i < n; i++ {
			eToP[i] = i % numPartitions
		}

	case GraphPartition:
		return growPartitions(pb.Graph, numPartitions), nil

	case External:
		if pb.Painter == nil {
			return nil, fmt.Errorf("%v strategy without a painter", pb.Strategy)
		}
		painted, err := pb.Painter.Paint(pb.Graph, numPartitions)
		if err != nil {
			return nil, fmt.Errorf("painter: %w", err)
		}
		if len(painted) != n {
			return nil, fmt.Errorf("painter returned %d assignments for %d cells", len(painted), n)
		}
		return painted, nil

	default:
		return nil, fmt.Errorf("unknown partition strategy %v", pb.Strategy)
	}

	return eToP, nil
}

// growPartitions fills partitions one at a time by breadth-first growth
// from the lowest unassigned cell, so each partition takes a compact patch
// of the dual graph. A partition that runs out of reachable cells reseeds.
func growPartitions(dg *DualGraph, numPartitions int) []int {
	n := dg.NCells
	eToP := make([]int, n)
	for i := range eToP {
		eToP[i] = -1
	}
	assigned := func(id int64) bool { return eToP[id] >= 0 }

	seed, remaining := 0, n
	for p := 0; p < numPartitions; p++ {
		target := (remaining + numPartitions - p - 1) / (numPartitions - p)
		count := 0
		for count < target {
			for assigned(int64(seed)) {
				seed++
			}
			bf := traverse.BreadthFirst{
				Visit: func(u graph.Node) {
					if !assigned(u.ID()) {
						eToP[u.ID()] = p
						count++
					}
				},
				Traverse: func(e graph.Edge) bool {
					next := e.To()
					if assigned(next.ID()) {
						next = e.From()
					}
					return count < target && !assigned(next.ID())
				},
			}
			bf.Walk(dg.Graph, dg.Graph.Node(int64(seed)), nil)
		}
		remaining -= count
	}
	return eToP
}
