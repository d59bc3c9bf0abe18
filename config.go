package linkmonitor

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Node roles selectable in a deployment configuration.
const (
	RoleResourceManager = "rm"
	RoleMobileNode      = "node"
)

// Config is a deployment configuration parsed from an INI file. The
// [links] section carries the control plane source to dataplane target
// pairs in operator preference order; the [writers] section pairs each
// mobile interface with the reader address heartbeats are sent to.
type Config struct {
	Id   NodeId
	Role string

	HeartbeatListen string
	HeartbeatPort   int
	Period          time.Duration
	Slack           time.Duration
	Loss            int
	SpinThreshold   time.Duration

	MobilityListen string
	MobilityPort   int
	SwitchingDelay time.Duration

	Links   IPMap
	Writers IPMap

	GatewayListen string
}

// LoadConfig reads and validates a deployment configuration file.
func LoadConfig(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	config := &Config{
		HeartbeatPort: DefaultHeartbeatPort,
		MobilityPort:  DefaultMobilityPort,
	}

	node := file.Section("node")
	config.Role = node.Key("role").In(RoleResourceManager, []string{RoleResourceManager, RoleMobileNode})
	switch {
	case node.HasKey("id"):
		config.Id, err = ParseNodeId(node.Key("id").String())
		if err != nil {
			return nil, fmt.Errorf("parsing node id: %w", err)
		}
	case node.HasKey("suffix"):
		suffix, err := node.Key("suffix").Int()
		if err != nil || suffix < 0 || suffix > 255 {
			return nil, fmt.Errorf("node suffix must be in [0,255]: %q", node.Key("suffix").String())
		}
		config.Id = NewNodeIdWithSuffix(uint8(suffix))
	default:
		config.Id = NewNodeId()
		log.Infof("[CONFIG] no node id configured, generated %v", config.Id)
	}

	heartbeat := file.Section("heartbeat")
	config.HeartbeatListen = heartbeat.Key("listen").MustString("0.0.0.0")
	config.HeartbeatPort = heartbeat.Key("port").MustInt(DefaultHeartbeatPort)
	config.Period = heartbeat.Key("period").MustDuration(3 * time.Millisecond)
	config.Slack = heartbeat.Key("slack").MustDuration(2 * time.Millisecond)
	config.Loss = heartbeat.Key("loss").MustInt(2)
	config.SpinThreshold = heartbeat.Key("spin_threshold").MustDuration(DefaultSpinThreshold)
	if config.Period <= 0 {
		return nil, fmt.Errorf("validating heartbeat period: %w", ErrPeriodZero)
	}

	mobility := file.Section("mobility")
	config.MobilityListen = mobility.Key("listen").MustString("0.0.0.0")
	config.MobilityPort = mobility.Key("port").MustInt(DefaultMobilityPort)
	config.SwitchingDelay = mobility.Key("switching_delay").MustDuration(0)

	config.Links = sectionPairs(file.Section("links"))
	config.Writers = sectionPairs(file.Section("writers"))

	config.GatewayListen = file.Section("gateway").Key("listen").String()

	if config.Role == RoleResourceManager && len(config.Links) == 0 {
		return nil, fmt.Errorf("rm config without [links] section")
	}
	if config.Role == RoleMobileNode && len(config.Writers) == 0 {
		return nil, fmt.Errorf("node config without [writers] section")
	}
	return config, nil
}

// sectionPairs converts an INI section into an ordered pair list,
// preserving declaration order.
func sectionPairs(section *ini.Section) IPMap {
	keys := section.Keys()
	pairs := make(IPMap, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, IPPair{Source: key.Name(), Target: key.String()})
	}
	return pairs
}
