package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/flyermask/internal/server"
	"github.com/example/flyermask/internal/storage"
)

// serveCmd runs the HTTP session service.
type serveCmd struct {
	addr       string
	sessionTTL time.Duration
	maxUpload  int64
	*root
	fs *flag.FlagSet
}

func (s *serveCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	if r != nil {
		r = r.subcommand("serve")
	}
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	s := &serveCmd{root: r, fs: fs}
	fs.Usage = usageFunc(s)
	addr, ttl, maxUpload := ":8080", server.DefaultSessionTTL, int64(server.DefaultMaxUpload)
	if r != nil && r.config != nil {
		if r.config.Server.Addr != "" {
			addr = r.config.Server.Addr
		}
		if r.config.Server.SessionTTL > 0 {
			ttl = r.config.Server.SessionTTL
		}
		if r.config.Server.MaxUpload > 0 {
			maxUpload = r.config.Server.MaxUpload
		}
	}
	fs.StringVar(&s.addr, "addr", addr, "listen address")
	fs.DurationVar(&s.sessionTTL, "session-ttl", ttl, "drop sessions idle for longer than this")
	fs.Int64Var(&s.maxUpload, "max-upload", maxUpload, "largest accepted request body in bytes")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, &UsageError{of: s}
	}
	return s, nil
}

func (s *serveCmd) options() server.Options {
	opts := server.Options{SessionTTL: s.sessionTTL, MaxUpload: s.maxUpload}
	if s.config != nil {
		opts.MaxDimension = s.config.Editor.MaxDimension
		opts.BrushRadius = s.config.Brush.Radius
		opts.ZoomStep = s.config.Brush.ZoomStep
	}
	if s.activeTheme != nil {
		opts.Tint = s.activeTheme.MaskTint
	}
	return opts
}

func (s *serveCmd) Run() error {
	log := s.root.logger().Named("server")

	var submit server.Submitter
	sub, files, err := s.root.newSubmitter(nil)
	switch {
	case err == nil:
		submit = sub
	case errors.Is(err, errNoAPIKey):
		log.Warn("inpainting disabled", zap.Error(err))
		if files, err = storage.NewDirStore(s.saveDir(), s.config.PublicURL); err != nil {
			return err
		}
	default:
		return err
	}

	srv := server.New(s.options(), submit, files.Handler(), log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, s.addr)
}
