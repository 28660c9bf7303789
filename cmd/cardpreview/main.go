// Command cardpreview renders a self-preview card from a score record file,
// without a running service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/okian/duelcard/internal/adapters/avatar"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/render/card"
	"github.com/okian/duelcard/internal/render/fonts"
	"github.com/okian/duelcard/pkg/logger"
)

const outputFilePermission = 0o644

type options struct {
	record  string
	name    string
	avatar  string
	out     string
	width   int
	height  int
	assets  string
	fontDir string
	verbose bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("cardpreview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.record, "record", "", "score record JSON file (omit for an empty card)")
	fs.StringVar(&o.name, "name", "", "display name (defaults to the record's owner)")
	fs.StringVar(&o.avatar, "avatar", "", "avatar image file or http(s) URL")
	fs.StringVar(&o.out, "out", "preview.png", "output PNG path")
	fs.IntVar(&o.width, "width", card.DefaultWidth, "canvas width")
	fs.IntVar(&o.height, "height", card.DefaultHeight, "canvas height")
	fs.StringVar(&o.assets, "assets", "assets", "asset directory")
	fs.StringVar(&o.fontDir, "font-dir", "", "extra font directory")
	fs.BoolVar(&o.verbose, "verbose", false, "log asset and font fallbacks")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.width <= 0 || o.height <= 0 {
		return o, fmt.Errorf("canvas must be positive, got %dx%d", o.width, o.height)
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	log := logger.Nop()
	if o.verbose {
		if err := logger.Init(); err == nil {
			log = logger.Get()
		}
	}

	if err := run(context.Background(), o, log); err != nil {
		os.Stderr.WriteString("cardpreview: " + err.Error() + "\n")
		os.Exit(1)
	}
	os.Stdout.WriteString("wrote " + o.out + "\n")
}

func run(ctx context.Context, o options, log logger.Logger) error {
	var rec *model.ScoreRecord
	if o.record != "" {
		raw, err := os.ReadFile(o.record)
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		parsed, err := model.ParseRecord(raw)
		if err != nil {
			return err
		}
		rec = &parsed
	}

	name := o.name
	if name == "" && rec != nil {
		name = rec.OwnerName
	}

	avatarData, err := loadAvatar(ctx, o.avatar, log)
	if err != nil {
		return err
	}

	registry := fonts.New(
		fonts.WithLogger(log.Named("fonts")),
		fonts.WithCandidates(fonts.DefaultCandidates(o.assets, o.fontDir)...),
	)
	registry.Register(ctx)
	compositor := card.New(registry,
		card.WithSize(o.width, o.height),
		card.WithAssetDir(o.assets),
		card.WithLogger(log.Named("card")),
	)

	png, err := compositor.RenderPrototype(ctx, card.Party{Name: name, Avatar: avatarData}, rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.out, png, outputFilePermission); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	return nil
}

// loadAvatar reads a local file, or downloads a URL with the same bounds the
// service uses. An unreachable URL yields the placeholder.
func loadAvatar(ctx context.Context, src string, log logger.Logger) ([]byte, error) {
	switch {
	case src == "":
		return nil, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return avatar.New(avatar.WithTimeout(10*time.Second), avatar.WithLogger(log.Named("avatar"))).Fetch(ctx, src), nil
	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read avatar: %w", err)
		}
		return data, nil
	}
}
