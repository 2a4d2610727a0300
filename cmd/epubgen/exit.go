package main

import (
	"errors"
	"fmt"

	"github.com/yuanying/epubgen/internal/binder"
	"github.com/yuanying/epubgen/internal/generator"
	"github.com/yuanying/epubgen/internal/replace"
	"github.com/yuanying/epubgen/internal/setting"
	"github.com/yuanying/epubgen/internal/workspace"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitBuildFailed = 1
	ExitUnexpected  = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps a build failure to its exit code. Known build failures
// (bad settings, missing files, I/O while staging) exit with 1; anything
// else is unexpected.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr     *setting.ConfigError
		missingErr *setting.MissingResourceError
		noContent  *setting.NoContentError
		refErr     *binder.InvalidChapterReferenceError
		buildErr   *generator.BuildError
		cleanupErr *workspace.CleanupError
		lineErr    *replace.LineError
	)
	switch {
	case errors.As(err, &cfgErr),
		errors.As(err, &missingErr),
		errors.As(err, &noContent),
		errors.As(err, &refErr),
		errors.As(err, &buildErr),
		errors.As(err, &cleanupErr),
		errors.As(err, &lineErr):
		return ExitBuildFailed
	}
	return ExitUnexpected
}
