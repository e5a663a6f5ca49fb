package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/relq/internal/ir"
)

// LoadCatalog compiles the tables declared in the given CUE files and
// directories. Directories are loaded as one CUE package instance; all
// inputs are unified before compilation, so a table may be split across
// files.
func LoadCatalog(paths ...string) (*ir.Catalog, error) {
	if len(paths) == 0 {
		return &ir.Catalog{}, nil
	}

	ctx := cuecontext.New()
	var merged cue.Value
	for i, path := range paths {
		v, err := loadValue(ctx, path)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			merged = v
		} else {
			merged = merged.Unify(v)
		}
	}
	if err := merged.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCatalog(merged)
}

func loadValue(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog: %w", err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("catalog: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog: scanning %s: %w", path, err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("catalog: no CUE files found in %s", path)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("catalog: no CUE instances loaded from %s", path)
	}
	if inst := instances[0]; inst.Err != nil {
		return cue.Value{}, fmt.Errorf("catalog: loading %s: %w", path, inst.Err)
	}
	v := ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
