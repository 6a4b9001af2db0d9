// Package seed loads YAML fixtures into an entity store.
//
// A fixture lists pages, each with its blockquotes in order. Blockquotes may
// name a parent by the key of an earlier blockquote:
//
//	pages:
//	  - key: intro
//	    blocks:
//	      - key: quote
//	        region: {offset: 0, len: 12}
//	        lines: ["> hello"]
//	      - key: reply
//	        parent: quote
//	        region: {offset: 13, len: 8}
//	        lines: ["> > hi"]
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/storage"
)

// Fixture is the document loaded from YAML
type Fixture struct {
	Pages []PageFixture `yaml:"pages"`
}

// PageFixture describes one page and its blocks
type PageFixture struct {
	Key    string              `yaml:"key"`
	Blocks []BlockquoteFixture `yaml:"blocks"`
}

// BlockquoteFixture describes one blockquote
type BlockquoteFixture struct {
	Key    string        `yaml:"key"`
	Region models.Region `yaml:"region"`
	Lines  []string      `yaml:"lines"`
	// Parent is the key of an earlier blockquote
	Parent string `yaml:"parent"`
}

// Result maps fixture keys to the refs of the created entities
type Result map[string]models.Ref

// Parse decodes a fixture, rejecting unknown keys
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, errors.ValidationErrorf("invalid fixture: %v", err)
	}
	return &f, nil
}

// LoadFile parses the fixture at path and loads it into store
func LoadFile(ctx context.Context, path string, store storage.Store, logger *logrus.Logger) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Load(ctx, f, store, logger)
}

// Load creates every page and blockquote of f in order. Keys are optional;
// a missing key gets "<page index>" or "<page index>.<block index>".
func Load(ctx context.Context, f *Fixture, store storage.Store, logger *logrus.Logger) (Result, error) {
	result := make(Result)
	for i, pf := range f.Pages {
		pageKey := pf.Key
		if pageKey == "" {
			pageKey = fmt.Sprintf("%d", i)
		}
		if _, dup := result[pageKey]; dup {
			return nil, errors.ValidationErrorf("duplicate fixture key %q", pageKey)
		}

		pageID, err := storage.NewPage().Create(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", pageKey, err)
		}
		result[pageKey] = models.NewRef(models.KindPage, pageID)

		for j, bf := range pf.Blocks {
			key := bf.Key
			if key == "" {
				key = fmt.Sprintf("%s.%d", pageKey, j)
			}
			if _, dup := result[key]; dup {
				return nil, errors.ValidationErrorf("duplicate fixture key %q", key)
			}

			b := storage.NewBlockquote().
				Region(bf.Region).
				Page(pageID)
			if bf.Lines != nil {
				b.Lines(bf.Lines)
			}
			if bf.Parent != "" {
				parent, ok := result[bf.Parent]
				if !ok {
					return nil, errors.NotFoundf("%s: parent %q is not an earlier fixture key", key, bf.Parent)
				}
				b.Parent(&parent)
			}

			id, err := b.Create(ctx, store)
			if err != nil {
				return nil, fmt.Errorf("blockquote %s: %w", key, err)
			}
			result[key] = models.NewRef(models.KindBlockquote, id)
		}
	}

	logger.WithField("entities", len(result)).Info("Loaded fixture")
	return result, nil
}
