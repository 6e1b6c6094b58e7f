package hostsetup

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/kollacli/internal/inventory"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
)

// maxParallelSetups bounds concurrent SSH sessions in SetupHosts.
const maxParallelSetups = 4

// Checker verifies a host is reachable through Ansible.
type Checker interface {
	CheckHost(ctx context.Context, inv *inventory.Inventory, hostname string, resultOnly bool) (bool, error)
}

// HostInfo is one entry of a host setup file.
type HostInfo struct {
	Password *string `yaml:"password"`
	Uname    string  `yaml:"uname"`
}

// Setup installs the admin public key on hosts.
type Setup struct {
	installer KeyInstaller
	checker   Checker
	adminUser string
	pubKey    []byte
	logger    zerolog.Logger
}

// New returns a Setup that installs pubKey for adminUser.
func New(installer KeyInstaller, checker Checker, adminUser string, pubKey []byte) *Setup {
	return &Setup{
		installer: installer,
		checker:   checker,
		adminUser: adminUser,
		pubKey:    pubKey,
		logger:    xlog.WithComponent("hostsetup"),
	}
}

// SetupHost logs into hostname as uname (the admin user when empty),
// installs the key and checks the host through Ansible afterwards.
func (s *Setup) SetupHost(ctx context.Context, inv *inventory.Inventory, hostname, password, uname string) error {
	if uname == "" {
		uname = s.adminUser
	}
	s.logger.Info().Str("host", hostname).Str("user", uname).Msg("starting host setup")

	if err := s.installer.InstallKey(ctx, hostname, uname, password, s.pubKey); err != nil {
		return model.WrapCLIError(model.ExitHostSetupError, fmt.Sprintf("Host (%s) setup failed", hostname), err)
	}
	ok, err := s.checker.CheckHost(ctx, inv, hostname, true)
	if err != nil {
		return model.WrapCLIError(model.ExitHostSetupError, fmt.Sprintf("Host (%s) setup failed", hostname), err)
	}
	if !ok {
		return model.Errorf(model.ExitHostSetupError, "Host (%s) setup failed : Post setup check failed", hostname)
	}

	s.logger.Info().Str("host", hostname).Msg("host setup succeeded")
	return nil
}

// SetupHosts sets up every host in hosts concurrently. All hosts are
// attempted; failures are reported together, sorted by host name.
//
// Flow:
//  1. Hosts missing from the inventory or without a password are recorded
//     as failures without contacting them.
//  2. The rest run SetupHost in an errgroup limited to maxParallelSetups
//     concurrent SSH sessions.
//  3. Once every goroutine finishes, a single HostSetupError lists each
//     failed host with its reason.
func (s *Setup) SetupHosts(ctx context.Context, inv *inventory.Inventory, hosts map[string]*HostInfo) error {
	var (
		mu     sync.Mutex
		failed = map[string]string{}
	)
	fail := func(host, reason string) {
		mu.Lock()
		failed[host] = reason
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSetups)

	for hostname, info := range hosts {
		if !inv.HasHost(hostname) {
			fail(hostname, "Host doesn't exist")
			continue
		}
		if info == nil || info.Password == nil {
			fail(hostname, "No password in yml file")
			continue
		}
		hostname, password, uname := hostname, *info.Password, info.Uname
		g.Go(func() error {
			// Failures are collected; the group never cancels.
			if err := s.SetupHost(gctx, inv, hostname, password, uname); err != nil {
				fail(hostname, err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		s.logger.Info().Int("hosts", len(hosts)).Msg("all hosts were successfully set up")
		return nil
	}
	return model.NewCLIError(model.ExitHostSetupError, "Not all hosts were set up: "+summarize(failed))
}

func summarize(failed map[string]string) string {
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, failed[name])
	}
	return b.String()
}

// LoadHostsFile parses a host setup file:
//
//	node1:
//	  password: secret
//	  uname: root
//	node2:
//	  password: other
//
// Hosts listed without a body map to a nil *HostInfo.
func LoadHostsFile(path string) (map[string]*HostInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitNotFound, fmt.Sprintf("Unable to read hosts file (%s)", path), err)
	}
	hosts := map[string]*HostInfo{}
	if err := yaml.Unmarshal(data, &hosts); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidArgument, fmt.Sprintf("Invalid hosts file (%s)", path), err)
	}
	if len(hosts) == 0 {
		return nil, model.Errorf(model.ExitInvalidArgument, "No hosts found in hosts file (%s)", path)
	}
	return hosts, nil
}
