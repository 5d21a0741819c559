// Package config loads the vpcweaver YAML configuration file and applies
// environment-variable overrides, producing the settings an orchestration
// run needs.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/diegogrr/vpcweaver/pkg/topology"
)

// Defaults applied when neither the file nor the environment sets a value
const (
	DefaultRegion          = "us-east-1"
	DefaultBaseBlock       = "10.0.0.0/16"
	DefaultSubnetPrefixLen = 24
	DefaultNamePrefix      = "vpcweaver"
)

// Config represents the parsed vpcweaver.yaml structure
type Config struct {
	NamePrefix string          `yaml:"name_prefix"`
	Region     string          `yaml:"region"`
	Network    NetworkConfig   `yaml:"network"`
	Instance   *InstanceConfig `yaml:"instance,omitempty"`
	Stack      *StackConfig    `yaml:"stack,omitempty"`
}

// NetworkConfig describes the topology to provision
type NetworkConfig struct {
	BaseBlock          string   `yaml:"base_block"`
	SubnetPrefixLength int      `yaml:"subnet_prefix_length"`
	Zones              []string `yaml:"zones"`

	// Readiness-wait overrides; zero means the topology package defaults
	NetworkWaitTimeout time.Duration `yaml:"network_wait_timeout,omitempty"`
	NATWaitTimeout     time.Duration `yaml:"nat_wait_timeout,omitempty"`
}

// InstanceConfig describes an optional instance launch
type InstanceConfig struct {
	ImageID      string `yaml:"image_id"`
	InstanceType string `yaml:"instance_type"`
	KeyName      string `yaml:"key_name,omitempty"`
}

// StackConfig describes an optional CloudFormation deployment
type StackConfig struct {
	Name         string `yaml:"name"`
	TemplatePath string `yaml:"template_path"`
	AssetsDir    string `yaml:"assets_dir,omitempty"`
}

// applyDefaults fills unset fields with package defaults
func (c *Config) applyDefaults() {
	if c.NamePrefix == "" {
		c.NamePrefix = DefaultNamePrefix
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Network.BaseBlock == "" {
		c.Network.BaseBlock = DefaultBaseBlock
	}
	if c.Network.SubnetPrefixLength == 0 {
		c.Network.SubnetPrefixLength = DefaultSubnetPrefixLen
	}
	if len(c.Network.Zones) == 0 {
		c.Network.Zones = []string{"us-east-1a", "us-east-1b"}
	}
}

// applyEnvOverrides lets the environment override file values. The
// variable names match the original provisioning tooling so existing
// .env files keep working.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("VPC_TAG_NAME"); v != "" {
		c.NamePrefix = v
	}
	if v := os.Getenv("REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("VPC_CIDR"); v != "" {
		c.Network.BaseBlock = v
	}
	if v := os.Getenv("AZ_LIST"); v != "" {
		c.Network.Zones = strings.Split(v, ",")
	}
	if v := os.Getenv("SUBNET_PREFIX_LENGTH"); v != "" {
		length, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SUBNET_PREFIX_LENGTH %q: %w", v, err)
		}
		c.Network.SubnetPrefixLength = length
	}
	return nil
}

// TopologyConfig converts the loaded configuration into the settings an
// orchestration run consumes
func (c *Config) TopologyConfig() (topology.Config, error) {
	base, err := netip.ParsePrefix(c.Network.BaseBlock)
	if err != nil {
		return topology.Config{}, fmt.Errorf("invalid base block %q: %w", c.Network.BaseBlock, err)
	}

	return topology.Config{
		BaseBlock:          base,
		SubnetPrefixLen:    c.Network.SubnetPrefixLength,
		Zones:              c.Network.Zones,
		NamePrefix:         c.NamePrefix,
		NetworkWaitTimeout: c.Network.NetworkWaitTimeout,
		NATWaitTimeout:     c.Network.NATWaitTimeout,
	}, nil
}
