// Package properties reads and edits the Kolla deployment options kept in
// globals.yml.
package properties

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/kollacli/internal/filestore"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
	"github.com/shinji-kodama/kollacli/internal/yamlkv"
)

// Property is a single name/value pair.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store edits a globals.yml file.
type Store struct {
	file   *filestore.File
	logger zerolog.Logger
}

// NewStore returns a Store for the globals file at path.
func NewStore(path string) *Store {
	return &Store{
		file:   filestore.New(path, 0o644),
		logger: xlog.WithComponent("properties"),
	}
}

// Path returns the globals file location.
func (s *Store) Path() string {
	return s.file.Path()
}

func (s *Store) load() (*yamlkv.Doc, error) {
	data, err := s.file.Read()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "reading properties failed", err)
	}
	return s.parse(data)
}

func (s *Store) parse(data []byte) (*yamlkv.Doc, error) {
	doc, err := yamlkv.Parse(data)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			"reading properties failed", fmt.Errorf("%s: %w", s.file.Path(), err))
	}
	return doc, nil
}

// Get returns the value of name and whether it is set.
func (s *Store) Get(name string) (string, bool, error) {
	doc, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Get(name)
	return v, ok, nil
}

// List returns every property sorted by name.
func (s *Store) List() ([]Property, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	values := doc.Map()
	out := make([]Property, 0, len(values))
	for _, k := range doc.Keys() {
		out = append(out, Property{Name: k, Value: values[k]})
	}
	return out, nil
}

// Set stores value under name.
func (s *Store) Set(name, value string) error {
	if err := model.ValidateName(name); err != nil {
		return model.WrapCLIError(model.ExitInvalidArgument, "invalid property name", err)
	}
	err := s.edit(func(doc *yamlkv.Doc) error {
		doc.Set(name, value)
		return nil
	})
	if err == nil {
		s.logger.Debug().Str("property", name).Msg("property set")
	}
	return err
}

// Clear removes name. Clearing a property that is not set is an error.
func (s *Store) Clear(name string) error {
	return s.edit(func(doc *yamlkv.Doc) error {
		if !doc.Delete(name) {
			return model.Errorf(model.ExitNotFound, "Property (%s) not found.", name)
		}
		s.logger.Debug().Str("property", name).Msg("property cleared")
		return nil
	})
}

func (s *Store) edit(fn func(*yamlkv.Doc) error) error {
	var cliErr error
	err := s.file.Update(func(current []byte) ([]byte, error) {
		doc, err := s.parse(current)
		if err != nil {
			cliErr = err
			return nil, err
		}
		if err := fn(doc); err != nil {
			cliErr = err
			return nil, err
		}
		return doc.Marshal()
	})
	if cliErr != nil {
		return cliErr
	}
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "saving properties failed", err)
	}
	return nil
}
