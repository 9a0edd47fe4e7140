package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const profilesFileName = ".ledgercfg"

// Credentials address one ledger service deployment.
type Credentials struct {
	Host  string
	Token string
}

// Registry reads named credential profiles from an ini file:
//
//	[staging]
//	host  = https://ledger.staging.example.com/api
//	token = ...
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetCredentials(ctx context.Context, profile string) (*Credentials, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential profiles %s: %w", path, err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

// DefaultProfilesPath is ~/.ledgercfg.
func DefaultProfilesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, profilesFileName), nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetCredentials(_ context.Context, profile string) (*Credentials, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", profile)
	}

	creds := &Credentials{
		Host:  section.Key("host").String(),
		Token: section.Key("token").String(),
	}
	if creds.Host == "" && creds.Token == "" {
		return nil, fmt.Errorf("profile %s has neither host nor token", profile)
	}
	return creds, nil
}
