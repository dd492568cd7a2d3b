package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// Credentials is one provider credential profile from ~/.config/linode-cli.
// Only the token matters to the evaluation engine; live account checks are
// skipped when it is absent.
type Credentials struct {
	Token  string
	Region string
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetCredentials(ctx context.Context, profile string) (*Credentials, error)
}

type cliRegistry struct {
	cfg *ini.File
}

// NewRegistry loads provider credential profiles from a linode-cli style
// INI file.
func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cliRegistry{cfg: cfg}, nil
}

func (cr *cliRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cliRegistry) GetCredentials(_ context.Context, profile string) (*Credentials, error) {
	section := cr.cfg.Section(profile)
	if section == nil {
		return nil, fmt.Errorf("profile %s not found", profile)
	}
	return &Credentials{
		Token:  section.Key("token").String(),
		Region: section.Key("region").String(),
	}, nil
}
