// Package passwords manages the service passwords in passwords.yml.
//
// The file is only ever readable by its owner. Values are written but
// never returned to callers other than the deploy, which hands the whole
// file to ansible-playbook.
package passwords

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/kollacli/internal/filestore"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
	"github.com/shinji-kodama/kollacli/internal/yamlkv"
)

// FileMode is the permission passwords.yml is written with.
const FileMode = 0o600

// Store edits a passwords.yml file.
type Store struct {
	file   *filestore.File
	logger zerolog.Logger
}

// NewStore returns a Store for the passwords file at path.
func NewStore(path string) *Store {
	return &Store{
		file:   filestore.New(path, FileMode),
		logger: xlog.WithComponent("passwords"),
	}
}

// Path returns the passwords file location.
func (s *Store) Path() string {
	return s.file.Path()
}

// Names returns every password name sorted.
func (s *Store) Names() ([]string, error) {
	data, err := s.file.Read()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "reading passwords failed", err)
	}
	doc, err := yamlkv.Parse(data)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "reading passwords failed",
			fmt.Errorf("%s: %w", s.file.Path(), err))
	}
	return doc.Keys(), nil
}

// Set stores value under name, adding the name if needed.
func (s *Store) Set(name, value string) error {
	if err := model.ValidateName(name); err != nil {
		return model.WrapCLIError(model.ExitInvalidArgument, "invalid password name", err)
	}
	if err := s.edit(func(doc *yamlkv.Doc) { doc.Set(name, value) }); err != nil {
		return err
	}
	s.logger.Debug().Str("password", name).Msg("password set")
	return nil
}

// Clear empties the value of name. The name itself stays in the file so
// the deploy still sees it.
func (s *Store) Clear(name string) error {
	if err := s.edit(func(doc *yamlkv.Doc) { doc.Set(name, "") }); err != nil {
		return err
	}
	s.logger.Debug().Str("password", name).Msg("password cleared")
	return nil
}

func (s *Store) edit(fn func(*yamlkv.Doc)) error {
	err := s.file.Update(func(current []byte) ([]byte, error) {
		doc, err := yamlkv.Parse(current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.file.Path(), err)
		}
		fn(doc)
		return doc.Marshal()
	})
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "saving passwords failed", err)
	}
	return nil
}
