// Command boothprint composes a photo-booth receipt from two captured
// frames on disk, optionally publishes the session, and prints the result
// on a USB ESC/POS receipt printer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/joho/godotenv"
	"github.com/pterm/pterm"

	"github.com/rusq/boothprint"
)

type params struct {
	text    string
	logo    string
	font    string
	device  string
	out     string
	copies  int
	noPrint bool
	noCut   bool
	noDate  bool
	verbose bool
}

var cliflags params

func init() {
	flag.StringVar(&cliflags.text, "text", "", "receipt `text` under the photos")
	flag.StringVar(&cliflags.logo, "logo", "", "logo image `file` printed at the top")
	flag.StringVar(&cliflags.font, "font", "", "TTF/OTF font `file` for the text block")
	flag.StringVar(&cliflags.device, "device", "", "serial `device` path (default: first discovered)")
	flag.StringVar(&cliflags.out, "out", "", "output `directory` for the composed receipt")
	flag.IntVar(&cliflags.copies, "copies", 0, "number of `copies` to print (0: configured default)")
	flag.BoolVar(&cliflags.noPrint, "no-print", false, "compose and save only, do not print")
	flag.BoolVar(&cliflags.noCut, "no-cut", false, "do not send the partial cut command")
	flag.BoolVar(&cliflags.noDate, "no-date", false, "omit the date line")
	flag.BoolVar(&cliflags.verbose, "v", os.Getenv("DEBUG") == "1", "enable verbose logging")
}

func init() {
	flag.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "Usage: %s [flags] <photo1> <photo2>\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv", "error", err)
	}
	flag.Parse()
	if cliflags.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cliflags, flag.Arg(0), flag.Arg(1)); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// applyFlags overlays set flags onto the configuration.  Unset flags leave
// the configured (or environment supplied) values alone.
func applyFlags(cfg boothprint.Config, p params) boothprint.Config {
	if p.logo != "" {
		cfg.LogoPath = p.logo
	}
	if p.font != "" {
		cfg.FontPath = p.font
	}
	if p.device != "" {
		cfg.Device = p.device
	}
	if p.out != "" {
		cfg.OutDir = p.out
	}
	if p.copies > 0 {
		cfg.Copies = p.copies
	}
	cfg.Cut = cfg.Cut && !p.noCut
	return cfg
}

func run(ctx context.Context, p params, photo1, photo2 string) error {
	cfg := applyFlags(boothprint.DefaultConfig().FromEnv(), p)

	ctrl := boothprint.NewController(cfg)
	for _, path := range []string{photo1, photo2} {
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		if err := ctrl.Capture(img); err != nil {
			return err
		}
	}

	req := boothprint.PrintRequest{
		Text:    p.text,
		Copies:  p.copies,
		NoPrint: p.noPrint,
	}
	if !p.noDate {
		req.DateText = time.Now().Format("2006-01-02 15:04")
	}

	spinner, _ := pterm.DefaultSpinner.Start("composing receipt")
	out, err := ctrl.ComposeAndPrint(ctx, req)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success("receipt saved: " + out.ReceiptPath)

	if out.PageURL != "" {
		pterm.Info.Println("session page: " + out.PageURL)
	}
	switch {
	case p.noPrint:
		pterm.Info.Println("printing skipped")
	case out.PrintErr != nil:
		pterm.Warning.Printfln("printed %d of %d copies: %v",
			out.Printed.Succeeded, out.Printed.Requested, out.PrintErr)
		return errors.New("print incomplete")
	default:
		pterm.Success.Printfln("printed %d of %d copies", out.Printed.Succeeded, out.Printed.Requested)
	}
	return nil
}
