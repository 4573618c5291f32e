package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Compiler turns contract sources into Michelson.
type Compiler struct {
	runner Runner
	binary string
}

// NewCompiler creates a compiler that runs binary (for example "ligo").
func NewCompiler(runner Runner, binary string) *Compiler {
	if binary == "" {
		binary = "ligo"
	}
	return &Compiler{runner: runner, binary: binary}
}

// Compile returns the Michelson source of the contract at path. Michelson
// files (.tz) are read verbatim; anything else goes through the compiler.
func (c *Compiler) Compile(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("client: contract source: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".tz") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("client: read %s: %w", path, err)
		}
		return string(data), nil
	}

	log.Info("Compiling contract", "path", path, "compiler", c.binary)
	argv := []string{c.binary, "compile", "contract", path}
	out, err := c.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return "", err
	}
	if out.Failed {
		return "", &CommandError{Command: argv, Output: out}
	}
	return strings.TrimSpace(out.Stdout), nil
}
