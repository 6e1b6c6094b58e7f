package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/kollacli/internal/filestore"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
)

// document is the on-disk JSON layout of an Inventory.
type document struct {
	Version     int                    `json:"version"`
	RemoteMode  *bool                  `json:"remote_mode,omitempty"`
	Vars        map[string]string      `json:"vars"`
	Groups      map[string]*HostGroup  `json:"groups"`
	Hosts       map[string]*Host       `json:"hosts"`
	Services    map[string]*Service    `json:"services"`
	SubServices map[string]*SubService `json:"sub_services"`
}

// MarshalJSON renders the inventory document.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	remote := inv.remoteMode
	return json.Marshal(document{
		Version:     inv.version,
		RemoteMode:  &remote,
		Vars:        inv.vars,
		Groups:      inv.groups,
		Hosts:       inv.hosts,
		Services:    inv.services,
		SubServices: inv.subServices,
	})
}

// decode parses an inventory document. Comments and trailing commas are
// tolerated so that hand-edited files still load.
func decode(data []byte, adminUser string) (*Inventory, error) {
	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, err
	}

	inv := empty(adminUser)
	inv.version = doc.Version
	if doc.RemoteMode != nil {
		inv.remoteMode = *doc.RemoteMode
	}
	if doc.Vars != nil {
		inv.vars = doc.Vars
	}
	for name, g := range doc.Groups {
		if g == nil {
			continue
		}
		g.Name = name
		if g.Hostnames == nil {
			g.Hostnames = []string{}
		}
		if g.Vars == nil {
			g.Vars = map[string]string{}
		}
		inv.groups[name] = g
	}
	for name, h := range doc.Hosts {
		if h == nil {
			continue
		}
		h.Name = name
		if h.Vars == nil {
			h.Vars = map[string]string{}
		}
		inv.hosts[name] = h
	}
	for name, s := range doc.Services {
		if s == nil {
			continue
		}
		s.Name = name
		if s.GroupNames == nil {
			s.GroupNames = []string{}
		}
		if s.SubServiceNames == nil {
			s.SubServiceNames = []string{}
		}
		inv.services[name] = s
	}
	for name, s := range doc.SubServices {
		if s == nil {
			continue
		}
		s.Name = name
		if s.GroupNames == nil {
			s.GroupNames = []string{}
		}
		inv.subServices[name] = s
	}
	return inv, nil
}

// Store loads and saves the inventory document.
type Store struct {
	file      *filestore.File
	adminUser string
	logger    zerolog.Logger
}

// NewStore returns a Store for the inventory at path. adminUser is the
// SSH user applied to groups in remote deploy mode.
func NewStore(path, adminUser string) *Store {
	return &Store{
		file:      filestore.New(path, 0o640),
		adminUser: adminUser,
		logger:    xlog.WithComponent("inventory"),
	}
}

// Path returns the inventory file location.
func (s *Store) Path() string {
	return s.file.Path()
}

// Load reads the inventory. A missing or blank file yields the default
// inventory. Documents from older releases are upgraded and saved back.
func (s *Store) Load() (*Inventory, error) {
	data, err := s.file.Read()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInventoryError, "loading inventory failed", err)
	}
	inv, err := s.parse(data)
	if err != nil {
		return nil, err
	}

	if inv.version != CurrentVersion {
		s.logger.Info().Int("from", inv.version).Int("to", CurrentVersion).Msg("upgrading inventory")
		inv.upgrade()
		if err := s.Save(inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Save writes the inventory as indented JSON.
func (s *Store) Save(inv *Inventory) error {
	data, err := encode(inv)
	if err != nil {
		return err
	}
	if err := s.file.Write(data); err != nil {
		return model.WrapCLIError(model.ExitInventoryError, "saving inventory failed", err)
	}
	s.logger.Debug().Str("path", s.file.Path()).Msg("inventory saved")
	return nil
}

// Update loads the inventory, applies fn and saves the result while
// holding the inventory lock, so concurrent kollacli invocations cannot
// lose each other's changes. Nothing is written if fn fails.
func (s *Store) Update(fn func(*Inventory) error) error {
	err := s.file.Update(func(current []byte) ([]byte, error) {
		inv, err := s.parse(current)
		if err != nil {
			return nil, err
		}
		inv.upgrade()
		if err := fn(inv); err != nil {
			return nil, err
		}
		return encode(inv)
	})
	if err == nil {
		return nil
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	return model.WrapCLIError(model.ExitInventoryError, "saving inventory failed", err)
}

func (s *Store) parse(data []byte) (*Inventory, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(s.adminUser), nil
	}
	inv, err := decode(data, s.adminUser)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInventoryError, "loading inventory failed",
			fmt.Errorf("%s: %w", s.file.Path(), err))
	}
	return inv, nil
}

func encode(inv *Inventory) ([]byte, error) {
	data, err := json.MarshalIndent(inv, "", "    ")
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInventoryError, "saving inventory failed", err)
	}
	return append(data, '\n'), nil
}
