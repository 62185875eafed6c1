// Package corpus loads the document collection the index is built from.
// Documents are keyed by positive integer ids; text is returned raw and
// normalised later by the tokenizer.
package corpus

import (
	"context"
	"fmt"

	"github.com/BronsonLau/NLP-Course/pkg/config"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
)

// Source yields the full corpus. Implementations return ErrCorpusEmpty
// rather than an empty map.
type Source interface {
	Load(ctx context.Context) (map[int]string, error)
}

// New returns the source selected by cfg.Source. pg is only used for the
// postgres source and may be nil otherwise.
func New(cfg config.CorpusConfig, pg *postgres.Client) (Source, error) {
	switch cfg.Source {
	case "dir":
		return NewDirSource(cfg.Dir, cfg.DocCount), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("corpus source postgres requires a postgres client")
		}
		return NewPostgresSource(pg, cfg.Table, cfg.LoadAttempts), nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Source)
	}
}

func checkNotEmpty(docs map[int]string, where string) error {
	if len(docs) == 0 {
		return fmt.Errorf("%s: %w", where, apperrors.ErrCorpusEmpty)
	}
	return nil
}
