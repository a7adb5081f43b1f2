package driver

import (
	"bindforge/internal/bind"
	"bindforge/internal/config"
	"bindforge/internal/emit"
	"bindforge/internal/verify"
)

// OptionsFromConfig translates a project file into run options. The AST
// cache is opened here when enabled; a cache that cannot be opened is
// returned as an error so the caller can decide to run without it.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	b := cfg.Bindings
	opts := Options{
		Jobs: cfg.Run.Jobs,
		Bind: bind.Options{
			FunctionPointers: b.FunctionPointers,
			ExtensibleEnums:  b.ExtensibleEnums,
			ClassName:        b.Class,
		},
		Emit: emit.Options{
			Namespace:           b.Namespace,
			ClassName:           b.Class,
			LibraryName:         b.Library,
			FileScopedNamespace: b.FileScopedNamespace,
			Nullables:           b.Nullables,
			Usings:              b.Usings,
			GenerateRuntime:     b.GenerateRuntime,
		},
	}
	opts.Platforms = make([]PlatformInput, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		opts.Platforms = append(opts.Platforms, PlatformInput{Triple: p.Triple, Path: p.AST})
	}
	if len(cfg.Verify.Command) > 0 {
		opts.Verifier = verify.Command{Args: cfg.Verify.Command}
	}
	if cfg.Run.Cache {
		var (
			cache *DiskCache
			err   error
		)
		if cfg.Run.CacheDir != "" {
			cache, err = OpenDiskCacheAt(cfg.Run.CacheDir)
		} else {
			cache, err = OpenDiskCache("bindforge")
		}
		if err != nil {
			return opts, err
		}
		opts.Cache = cache
	}
	return opts, nil
}
