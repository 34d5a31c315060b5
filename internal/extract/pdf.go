package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; install poppler (brew install poppler / apt install poppler-utils)")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFReader converts PDF bytes to text with pdftotext.
type PDFReader struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// NewPDFReader uses the system pdftotext.
func NewPDFReader() *PDFReader {
	return &PDFReader{runner: ExecRunner{}, lookPath: exec.LookPath}
}

// NewPDFReaderWithRunner injects the command runner; the tool is assumed present.
func NewPDFReaderWithRunner(r CommandRunner) *PDFReader {
	return &PDFReader{runner: r, lookPath: func(name string) (string, error) { return name, nil }}
}

// Text writes data to a temp file and returns pdftotext's output.
func (p *PDFReader) Text(ctx context.Context, data []byte) (string, error) {
	if _, err := p.lookPath("pdftotext"); err != nil {
		return "", ErrPDFToolNotFound
	}
	tmp, err := os.CreateTemp("", "crerag-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	out, err := p.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
