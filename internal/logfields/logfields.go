// Package logfields holds the canonical slog attribute names used across the build.
package logfields

import "log/slog"

const (
	KeyPath     = "path"
	KeyStage    = "stage"
	KeyDocument = "document"
	KeyChapter  = "chapter"
	KeyCount    = "count"
	KeyAttempt  = "attempt"
	KeyError    = "error"
)

func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Stage(name string) slog.Attr    { return slog.String(KeyStage, name) }
func Document(name string) slog.Attr { return slog.String(KeyDocument, name) }
func Chapter(pos int) slog.Attr      { return slog.Int(KeyChapter, pos) }
func Count(n int) slog.Attr          { return slog.Int(KeyCount, n) }
func Attempt(n int) slog.Attr        { return slog.Int(KeyAttempt, n) }

// Error returns an attribute carrying err's message; nil yields an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
