package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/notargets/simplicial/mesh"
	"github.com/notargets/simplicial/partitions"
	"github.com/notargets/simplicial/topology"
)

var (
	infoCommand = &cli.Command{
		Name:      "info",
		Usage:     "Prints the simplex counts and connectivity of a mesh",
		ArgsUsage: "meshfile",
		Action:    info,
	}
	boundaryCommand = &cli.Command{
		Name:      "boundary",
		Usage:     "Prints the boundary of a mesh",
		ArgsUsage: "meshfile",
		Action:    boundary,
	}
	skeletonCommand = &cli.Command{
		Name:      "skeleton",
		Usage:     "Prints the number of distinct simplices of one dimension",
		ArgsUsage: "meshfile",
		Action:    skeleton,
		Flags:     []cli.Flag{dimFlag},
	}
	refineCommand = &cli.Command{
		Name:      "refine",
		Usage:     "Uniformly refines a mesh",
		ArgsUsage: "meshfile",
		Action:    refine,
		Flags:     []cli.Flag{levelsFlag},
	}
	partitionCommand = &cli.Command{
		Name:      "partition",
		Usage:     "Splits a mesh into partitions",
		ArgsUsage: "meshfile",
		Action:    partition,
		Flags:     []cli.Flag{partsFlag, strategyFlag},
	}
)

var (
	dimFlag = &cli.IntFlag{
		Name:  "dim",
		Usage: "Simplex dimension",
		Value: 1,
	}
	levelsFlag = &cli.IntFlag{
		Name:  "levels",
		Usage: "Number of refinement levels",
		Value: 1,
	}
	partsFlag = &cli.IntFlag{
		Name:  "parts",
		Usage: "Number of partitions, overrides the settings file",
	}
	strategyFlag = &cli.StringFlag{
		Name:  "strategy",
		Usage: "Partition strategy (block, roundrobin, graph), overrides the settings file",
	}
)

func info(ctx *cli.Context) error {
	e, l, err := loadMesh(ctx)
	if err != nil {
		return err
	}
	m := l.Mesh
	out := ctx.App.Writer
	fmt.Fprintf(out, "cells:     %d %s\n", m.NCells(), topology.Name(m.Dim()))
	if l.Skipped > 0 {
		fmt.Fprintf(out, "skipped:   %d\n", l.Skipped)
	}
	for d := 0; d <= m.Dim(); d++ {
		fmt.Fprintf(out, "%-10s %d\n", topology.Name(d)+":", e.topo.NSimplices(d))
	}
	if m.Dim() == 0 {
		return nil
	}
	fmt.Fprintf(out, "boundary:  %d\n", m.BoundarySize())

	dg, err := partitions.NewDualGraph(m)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "components: %d\n", len(dg.Components()))
	if dg.NonManifold > 0 {
		fmt.Fprintf(out, "non-manifold faces: %d\n", dg.NonManifold)
	}
	return nil
}

func boundary(ctx *cli.Context) error {
	_, l, err := loadMesh(ctx)
	if err != nil {
		return err
	}
	b, err := l.Mesh.Boundary()
	if err != nil {
		return err
	}
	out := ctx.App.Writer
	fmt.Fprintf(out, "boundary: %d %s\n", b.NCells(), topology.Name(b.Dim()))
	if b.Dim() == 0 || b.NCells() == 0 {
		return nil
	}
	dg, err := partitions.NewDualGraph(b)
	if err != nil {
		return err
	}
	for i, comp := range dg.Components() {
		fmt.Fprintf(out, "  component %d: %d cells\n", i, len(comp))
	}
	return nil
}

func skeleton(ctx *cli.Context) error {
	_, l, err := loadMesh(ctx)
	if err != nil {
		return err
	}
	dim := ctx.Int(dimFlag.Name)
	f, err := mesh.Filter(l.Mesh, dim)
	if err != nil {
		return err
	}
	defer f.Release()
	fmt.Fprintf(ctx.App.Writer, "%s: %d\n", topology.Name(dim), f.NCells())
	return nil
}

func refine(ctx *cli.Context) error {
	e, l, err := loadMesh(ctx)
	if err != nil {
		return err
	}
	levels := ctx.Int(levelsFlag.Name)
	if levels < 0 {
		return fmt.Errorf("negative refinement levels %d", levels)
	}
	out := ctx.App.Writer
	m := l.Mesh
	fmt.Fprintf(out, "level 0: %d cells, %d vertices\n", m.NCells(), e.topo.NSimplices(0))
	for i := 1; i <= levels; i++ {
		r, err := mesh.Refine(m, nil)
		if err != nil {
			return err
		}
		m.Release()
		m = r
		fmt.Fprintf(out, "level %d: %d cells, %d vertices\n", i, m.NCells(), e.topo.NSimplices(0))
	}
	fmt.Fprintf(out, "boundary: %d\n", m.BoundarySize())
	return nil
}

func partition(ctx *cli.Context) error {
	e, l, err := loadMesh(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(partsFlag.Name) {
		e.cfg.Partition.Count = ctx.Int(partsFlag.Name)
	}
	if ctx.IsSet(strategyFlag.Name) {
		e.cfg.Partition.Strategy = ctx.String(strategyFlag.Name)
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	dg, err := partitions.NewDualGraph(l.Mesh)
	if err != nil {
		return err
	}
	pb, err := e.cfg.PartitionBuilder(dg, e.log)
	if err != nil {
		return err
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return err
	}
	meshes, _, err := partitions.Split(l.Mesh, layout, func(int) (*topology.Topology, error) {
		return topology.New(e.cfg.TopologyOptions(e.log)...)
	})
	if err != nil {
		return err
	}
	comm := layout.AnalyzeCommunication(dg)
	fc, err := layout.Connector(dg, 1)
	if err != nil {
		return err
	}

	out := ctx.App.Writer
	stats := layout.PartitionStatistics()
	fmt.Fprintf(out, "partitions: %d (%v)\n", stats.NumPartitions, pb.Strategy)
	fmt.Fprintf(out, "cells:      min %d max %d avg %.2f imbalance %.3f\n",
		stats.MinCells, stats.MaxCells, stats.AvgCells, stats.Imbalance)
	for p, pm := range meshes {
		sent := 0
		for q := 0; q < fc.NumPartitions; q++ {
			if q != p {
				sent += len(fc.GetPickIndices(p, q))
			}
		}
		fmt.Fprintf(out, "  partition %d: %d cells, %d vertices, %d boundary faces, %d interface faces, %d sent\n",
			p, pm.NCells(), pm.Topology().NSimplices(0), pm.BoundarySize(), len(comm[p]), sent)
		pm.Release()
	}
	return nil
}
