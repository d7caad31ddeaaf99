package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/studiowebux/blitzbar/internal/executor"
)

const (
	DefaultHost   = "www.blitz.io"
	DefaultScheme = "https"
	DefaultPort   = 443
)

// Environment overrides, applied on top of the selected profile
const (
	EnvUser     = "BLITZ_API_USER"
	EnvKey      = "BLITZ_API_KEY"
	EnvHost     = "BLITZ_HOST"
	EnvEndpoint = "BLITZ_ENDPOINT"
)

var validate = validator.New()

// Profile holds the credentials and service endpoint for one account
type Profile struct {
	Name         string              `yaml:"name" json:"name" validate:"required"`
	Username     string              `yaml:"username,omitempty" json:"username,omitempty" `
	APIKey       string              `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Host         string              `yaml:"host,omitempty" json:"host,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Port         int                 `yaml:"port,omitempty" json:"port,omitempty" validate:"gte=0,lte=65535"`
	Scheme       string              `yaml:"scheme,omitempty" json:"scheme,omitempty" validate:"omitempty,oneof=http https"`
	PollInterval time.Duration       `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty" validate:"gte=0"`
	Region       string              `yaml:"region,omitempty" json:"region,omitempty"`
	TLS          *executor.TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// File is the on-disk layout of a profiles file
type File struct {
	Profiles []Profile `yaml:"profiles" validate:"dive"`
}

// Endpoint returns the service endpoint with defaults filled in
func (p *Profile) Endpoint() executor.Endpoint {
	ep := executor.Endpoint{Scheme: p.Scheme, Host: p.Host, Port: p.Port}
	if ep.Scheme == "" {
		ep.Scheme = DefaultScheme
	}
	if ep.Host == "" {
		ep.Host = DefaultHost
	}
	if ep.Port == 0 && ep.Scheme == DefaultScheme {
		ep.Port = DefaultPort
	}
	return ep
}

// Credentials returns the login credentials of the profile
func (p *Profile) Credentials() executor.Credentials {
	return executor.Credentials{Username: p.Username, APIKey: p.APIKey}
}

// Validate checks the struct tags of the profile
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("profile %q: %s", p.Name, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

// RequireCredentials reports a missing username or API key
func (p *Profile) RequireCredentials() error {
	var missing []string
	if p.Username == "" {
		missing = append(missing, "username (or "+EnvUser+")")
	}
	if p.APIKey == "" {
		missing = append(missing, "apiKey (or "+EnvKey+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("profile %q is missing %s", p.Name, strings.Join(missing, " and "))
	}
	return nil
}

// ApplyEnv overrides profile fields from the environment
func (p *Profile) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvUser); v != "" {
		p.Username = v
	}
	if v := getenv(EnvKey); v != "" {
		p.APIKey = v
	}
	if v := getenv(EnvHost); v != "" {
		host, port, found := strings.Cut(v, ":")
		p.Host = host
		if found {
			n, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", EnvHost, err)
			}
			p.Port = n
		}
	}
	if v := getenv(EnvEndpoint); v != "" {
		ep, err := executor.ParseEndpoint(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvEndpoint, err)
		}
		p.Scheme, p.Host, p.Port = ep.Scheme, ep.Host, ep.Port
	}
	return nil
}

// LoadProfiles reads and validates a profiles file. A missing file yields a
// single default profile.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Profile{{Name: "default"}}, nil
		}
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	seen := make(map[string]bool, len(file.Profiles))
	for i := range file.Profiles {
		if err := file.Profiles[i].Validate(); err != nil {
			return nil, err
		}
		if seen[file.Profiles[i].Name] {
			return nil, fmt.Errorf("duplicate profile %q", file.Profiles[i].Name)
		}
		seen[file.Profiles[i].Name] = true
	}
	if len(file.Profiles) == 0 {
		file.Profiles = []Profile{{Name: "default"}}
	}
	return file.Profiles, nil
}

// SaveProfiles writes profiles to path, readable by the owner only
func SaveProfiles(path string, profiles []Profile) error {
	data, err := yaml.Marshal(File{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(path, data, SecretPermissions); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}
	return nil
}
