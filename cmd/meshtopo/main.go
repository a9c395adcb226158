package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/notargets/simplicial/config"
	"github.com/notargets/simplicial/readers"
	"github.com/notargets/simplicial/topology"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML settings file",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "loglevel",
		Usage: "Log level, overrides the settings file",
	}
)

func newApp(out, errOut io.Writer) *cli.App {
	app := &cli.App{
		Name:      filepath.Base(os.Args[0]),
		Usage:     "simplicial mesh topology tool",
		Writer:    out,
		ErrWriter: errOut,
		Flags:     []cli.Flag{configFlag, logLevelFlag},
		Commands: []*cli.Command{
			infoCommand,
			boundaryCommand,
			skeletonCommand,
			refineCommand,
			partitionCommand,
		},
	}
	app.CommandNotFound = func(ctx *cli.Context, cmd string) {
		fmt.Fprintf(ctx.App.ErrWriter, "No such command: %s\n", cmd)
		os.Exit(1)
	}
	return app
}

func main() {
	exit(newApp(os.Stdout, os.Stderr).Run(os.Args))
}

func exit(err interface{}) {
	if err == nil {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// env is what every command needs: settings, a logger and a topology.
type env struct {
	cfg  config.Config
	log  *logrus.Logger
	topo *topology.Topology
}

func setup(ctx *cli.Context) (*env, error) {
	cfg := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.LogLevel = ctx.String(logLevelFlag.Name)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	log := cfg.Logger(ctx.App.ErrWriter)
	topo, err := topology.New(cfg.TopologyOptions(log)...)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, topo: topo}, nil
}

// loadMesh handles the common case of a single mesh file argument.
func loadMesh(ctx *cli.Context) (*env, *readers.Loaded, error) {
	if ctx.NArg() != 1 {
		return nil, nil, fmt.Errorf("need mesh file as argument")
	}
	e, err := setup(ctx)
	if err != nil {
		return nil, nil, err
	}
	path := ctx.Args().First()
	l, err := readers.ReadMeshFile(e.topo, path)
	if err != nil {
		return nil, nil, err
	}
	e.log.WithFields(logrus.Fields{
		"file":    path,
		"cells":   l.Mesh.NCells(),
		"skipped": l.Skipped,
	}).Info("mesh loaded")
	if l.Skipped > 0 {
		e.log.WithField("skipped", l.Skipped).Warn("non-simplicial elements dropped")
	}
	return e, l, nil
}
