// Package config resolves the filesystem locations and identities kollacli
// works with.
//
// Values come from three layers, highest priority first:
//  1. Environment variables (KOLLA_HOME, KOLLA_ETC, ...)
//  2. An optional YAML file ($KOLLACLI_CONFIG or <kollacli_etc>/kollacli.yml)
//  3. Built-in defaults matching a packaged Kolla installation
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default locations for a packaged installation.
const (
	DefaultKollaHome   = "/usr/share/kolla"
	DefaultKollaEtc    = "/etc/kolla"
	DefaultKollacliEtc = "/etc/kolla/kollacli"
	DefaultLogDir      = "/var/log/kolla"
	DefaultAdminUser   = "kolla"
	DefaultAnsibleBin  = "ansible"
	DefaultPlaybookBin = "ansible-playbook"

	// ConfigFileName is looked up inside KollacliEtc when KOLLACLI_CONFIG
	// is not set.
	ConfigFileName = "kollacli.yml"
)

// Config holds resolved paths and identities.
type Config struct {
	KollaHome   string `yaml:"kolla_home"`
	KollaEtc    string `yaml:"kolla_etc"`
	KollacliEtc string `yaml:"kollacli_etc"`
	LogDir      string `yaml:"log_dir"`
	AdminUser   string `yaml:"admin_user"`
	SSHKeyPath  string `yaml:"ssh_key"`
	AnsibleBin  string `yaml:"ansible_bin"`
	PlaybookBin string `yaml:"playbook_bin"`
}

// envBindings maps environment variables onto Config fields.
var envBindings = []struct {
	env   string
	field func(*Config) *string
}{
	{"KOLLA_HOME", func(c *Config) *string { return &c.KollaHome }},
	{"KOLLA_ETC", func(c *Config) *string { return &c.KollaEtc }},
	{"KOLLA_CLI_ETC", func(c *Config) *string { return &c.KollacliEtc }},
	{"KOLLA_LOG_DIR", func(c *Config) *string { return &c.LogDir }},
	{"KOLLA_ADMIN_USER", func(c *Config) *string { return &c.AdminUser }},
	{"KOLLA_SSH_KEY", func(c *Config) *string { return &c.SSHKeyPath }},
	{"KOLLA_ANSIBLE_BIN", func(c *Config) *string { return &c.AnsibleBin }},
	{"KOLLA_PLAYBOOK_BIN", func(c *Config) *string { return &c.PlaybookBin }},
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() Config {
	return Config{
		KollaHome:   DefaultKollaHome,
		KollaEtc:    DefaultKollaEtc,
		KollacliEtc: DefaultKollacliEtc,
		LogDir:      DefaultLogDir,
		AdminUser:   DefaultAdminUser,
		AnsibleBin:  DefaultAnsibleBin,
		PlaybookBin: DefaultPlaybookBin,
	}
}

// Load resolves the configuration from defaults, the optional YAML file
// and the environment.
func Load() (Config, error) {
	cfg := Defaults()

	// KOLLA_CLI_ETC decides where the default config file lives, so it is
	// applied before the file is read and again afterwards.
	if v := os.Getenv("KOLLA_CLI_ETC"); v != "" {
		cfg.KollacliEtc = v
	}

	path := os.Getenv("KOLLACLI_CONFIG")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.KollacliEtc, ConfigFileName)
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.fillDerived()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for _, b := range envBindings {
		if v := *b.field(&fileCfg); v != "" {
			*b.field(c) = v
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	for _, b := range envBindings {
		if v := os.Getenv(b.env); v != "" {
			*b.field(c) = v
		}
	}
}

func (c *Config) fillDerived() {
	if c.SSHKeyPath == "" {
		c.SSHKeyPath = filepath.Join(c.KollaHome, ".ssh", "id_rsa")
	}
}

// InventoryPath is the location of the persisted inventory.
func (c Config) InventoryPath() string {
	return filepath.Join(c.KollacliEtc, "ansible", "inventory.json")
}

// GlobalsPath is the location of the deployment properties file.
func (c Config) GlobalsPath() string {
	return filepath.Join(c.KollaEtc, "globals.yml")
}

// PasswordsPath is the location of the service passwords file.
func (c Config) PasswordsPath() string {
	return filepath.Join(c.KollaEtc, "passwords.yml")
}

// SitePlaybook is the main deployment playbook.
func (c Config) SitePlaybook() string {
	return filepath.Join(c.KollaHome, "ansible", "site.yml")
}

// DestroyPlaybook removes all kolla containers and data from hosts.
func (c Config) DestroyPlaybook() string {
	return filepath.Join(c.KollaHome, "ansible", "destroy.yml")
}

// SwiftConfigDir holds the swift ring files required before deploying swift.
func (c Config) SwiftConfigDir() string {
	return filepath.Join(c.KollaEtc, "config", "swift")
}

// PublicKeyPath is the admin user's public key distributed by host setup.
func (c Config) PublicKeyPath() string {
	return c.SSHKeyPath + ".pub"
}
