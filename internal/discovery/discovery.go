// Package discovery advertises the node over mDNS so the host harness
// can find it without a serial console.
package discovery

import (
	"net"
	"os"

	"github.com/camstack/camd/internal/app"
	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Enable bool   `yaml:"enable"`
			Name   string `yaml:"name"`
			Port   int    `yaml:"port"`
		} `yaml:"discovery"`
	}

	// default config
	cfg.Mod.Enable = true
	cfg.Mod.Name = "camd"
	cfg.Mod.Port = 8080

	app.LoadConfig(&cfg)

	log = app.GetLogger("discovery")

	if !cfg.Mod.Enable {
		return
	}

	ips := localIPs()
	if ips == nil {
		log.Warn().Msg("[discovery] no usable interface")
		return
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = cfg.Mod.Name
	}

	// important to set hostName manually with the `.local.` tail
	// important to set ips manually
	service, err := mdns.NewMDNSService(
		cfg.Mod.Name, "_camd._tcp", "", hostname+".local.", cfg.Mod.Port, ips,
		[]string{"version=" + app.Version},
	)
	if err != nil {
		log.Warn().Err(err).Msg("[discovery] service")
		return
	}

	server, err = mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		log.Warn().Err(err).Msg("[discovery] server")
		return
	}

	log.Info().Str("name", cfg.Mod.Name).Str("service", "_camd._tcp").Msg("[discovery] advertise")
}

var log zerolog.Logger

var server *mdns.Server

func localIPs() []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue // interface down
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue // loopback interface
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			switch addr := addr.(type) {
			case *net.IPNet:
				ips = append(ips, addr.IP)
			case *net.IPAddr:
				ips = append(ips, addr.IP)
			}
		}
	}
	return ips
}
