package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/config"
	"github.com/allbin/go-boardlink/internal/hostfolder"
	"github.com/allbin/go-boardlink/internal/logging"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/state"
	"github.com/allbin/go-boardlink/internal/transport"
	"github.com/allbin/go-boardlink/internal/workflow"
)

// app holds what every command shares: config, logger, state file and registry.
type app struct {
	cfg      config.Config
	logger   *zap.SugaredLogger
	closeLog func() error
	store    *state.Store
	binder   *hostfolder.Binder
	registry *registry.Local
}

// newApp wires the registry and folder binding around chooser. With toFile set,
// logs go to the rotating log file so they do not tear a TUI.
func newApp(chooser registry.Chooser, toFile bool) (*app, error) {
	a := &app{cfg: cfg, closeLog: func() error { return nil }}

	var err error
	if toFile {
		a.logger, a.closeLog, err = logging.NewFile(cfg.LogFile, cfg.Debug)
	} else {
		a.logger, err = logging.New(cfg.Debug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	fs := afero.NewOsFs()
	a.store, err = state.Open(fs, cfg.StateFile)
	if err != nil {
		_ = a.closeLog()
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}

	a.binder = hostfolder.New(fs, a.store, a.logger)
	a.registry = registry.NewLocal(a.store, chooser, a.logger)
	return a, nil
}

// workflow builds the connection state machine. Without storage the connection
// completes as soon as the board is identified.
func (a *app) workflow(withStorage bool) *workflow.Workflow {
	deps := workflow.Deps{
		Registry: a.registry,
		Logger:   a.logger,
	}
	if withStorage {
		deps.Storage = a.binder
	}
	return workflow.New(deps,
		workflow.WithProbeTimeout(a.cfg.ProbeTimeout),
		workflow.WithAutoUseFolder(a.cfg.AutoUseFolder),
	)
}

func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.closeLog()
}

// pickDevice resolves path to a handle, or without a path picks the single capable
// authorized device and otherwise asks the registry's chooser.
func (a *app) pickDevice(ctx context.Context, path string) (registry.Handle, error) {
	if path != "" {
		info, err := boardlink.GetPortInfo(path)
		if err != nil {
			return registry.Handle{}, err
		}
		return registry.Handle{Key: info.Key(), Path: info.Path, Label: info.Label(), Readable: true, Writable: true}, nil
	}

	handles, err := a.registry.Authorized(ctx)
	if err != nil {
		return registry.Handle{}, err
	}
	if candidates := registry.Candidates(handles); len(candidates) == 1 {
		return candidates[0], nil
	}
	return a.registry.Request(ctx)
}

// openSession claims h and starts a transport session that feeds handler.
func (a *app) openSession(ctx context.Context, h registry.Handle, handler transport.Handler) (*transport.Session, error) {
	res := a.registry.Open(ctx, h)
	switch res.Status {
	case registry.OpenOK:
	case registry.OpenBusy:
		return nil, fmt.Errorf("%s is busy: %w", h.Path, res.Err)
	default:
		return nil, res.Err
	}

	sess, err := transport.Start(ctx, res.Port, handler, transport.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", boardlink.ErrOpen, err)
	}
	return sess, nil
}

// cancelled reports errors that end a command quietly.
func cancelled(err error) bool {
	return errors.Is(err, boardlink.ErrSelectionCancelled) || errors.Is(err, context.Canceled)
}
