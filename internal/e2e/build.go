package e2e

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
)

type BuildOptions struct {
	// Dir is the module directory to build from, defaults to "."
	Dir string
	// Package is the main package, ie. "./cmd/simple-game"
	Package string
	// Tags are passed to go build, ie. "headless"
	Tags string
	// OutputDir defaults to a new temp dir
	OutputDir string
}

// BuildGame compiles the game binary and returns its path
func BuildGame(ctx context.Context, options BuildOptions) (string, error) {
	if options.Dir == "" {
		options.Dir = "."
	}
	dir, err := filepath.Abs(options.Dir)
	if err != nil {
		return "", errors.Wrap(err, "unable to resolve build dir")
	}
	pkg, err := loadMainPackage(dir, options.Package, options.Tags)
	if err != nil {
		return "", err
	}

	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir, err = os.MkdirTemp("", "simple-game-e2e-")
		if err != nil {
			return "", errors.Wrap(err, "unable to create output dir")
		}
	}
	output := filepath.Join(outputDir, binaryName(pkg))

	args := []string{"build", "-o", output}
	if options.Tags != "" {
		args = append(args, "-tags", options.Tags)
	}
	args = append(args, pkg.PkgPath)
	cmd := exec.CommandContext(ctx, gobin(), args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "go %s\n%s", strings.Join(args, " "), out)
	}
	return output, nil
}

func loadMainPackage(dir, pattern, tags string) (*packages.Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}
	if tags != "" {
		cfg.BuildFlags = []string{"-tags", tags}
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load package %s", pattern)
	}
	if len(pkgs) != 1 {
		return nil, errors.Errorf("expected 1 package for %s, got %d", pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, errors.Errorf("package %s: %v", pattern, pkg.Errors[0])
	}
	if pkg.Name != "main" {
		return nil, errors.Errorf("package %s is %q, not a main package", pkg.PkgPath, pkg.Name)
	}
	if len(pkg.GoFiles) == 0 {
		return nil, errors.New("cannot find *.go files in: " + pattern)
	}
	return pkg, nil
}

func binaryName(pkg *packages.Package) string {
	name := filepath.Base(filepath.Dir(pkg.GoFiles[0]))
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

func gobin() string {
	return filepath.Join(runtime.GOROOT(), "bin", "go")
}
