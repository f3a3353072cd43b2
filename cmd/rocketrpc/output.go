// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// printer renders call results and failures.
type printer struct {
	out    io.Writer
	errOut io.Writer
	format string
	ok     *color.Color
	fail   *color.Color
}

func newPrinter(out, errOut io.Writer, format string, useColor bool) *printer {
	p := &printer{
		out:    out,
		errOut: errOut,
		format: format,
		ok:     color.New(color.FgGreen),
		fail:   color.New(color.FgRed, color.Bold),
	}
	if f, isFile := out.(*os.File); !useColor || !isFile || !isatty.IsTerminal(f.Fd()) {
		p.ok.DisableColor()
		p.fail.DisableColor()
	}
	return p
}

func (p *printer) result(raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	switch p.format {
	case outputYAML:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = p.ok.Fprint(p.out, string(b))
		return err
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("format result: %w", err)
		}
		_, err := p.ok.Fprintln(p.out, buf.String())
		return err
	}
}

func (p *printer) failure(err error) {
	p.fail.Fprintf(p.errOut, "error: %v\n", err)
}
