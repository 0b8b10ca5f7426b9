package server

import (
	"log/slog"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/mdns"

	"github.com/izzyreal/bbdash/internal/config"
	"github.com/izzyreal/bbdash/internal/version"
)

const mdnsService = "_bbdash._tcp"

// advertisement is what a dashboard publishes so desktop clients on the LAN
// can find both its HTTP and gRPC endpoints.
type advertisement struct {
	instance string
	port     int
	txt      []string
}

func newAdvertisement(cfg config.File, httpAddr, grpcAddr, host string) (advertisement, bool) {
	port, err := strconv.Atoi(listenPortFromAddr(httpAddr))
	if err != nil || port <= 0 {
		return advertisement{}, false
	}
	host = strings.TrimSpace(host)
	if host == "" {
		host = "bbdash"
	}
	instance := strings.TrimSpace(envOrDefault("BBDASH_MDNS_INSTANCE", "bbdash-"+host))
	if instance == "" {
		instance = "bbdash"
	}

	masters := make([]string, 0, len(cfg.Buildmasters))
	for _, m := range cfg.Buildmasters {
		masters = append(masters, m.ID)
	}
	txt := []string{
		"name=bbdash",
		"api_version=" + strconv.Itoa(apiVersion),
		"version=" + version.Current(),
		"grpc_port=" + listenPortFromAddr(grpcAddr),
		"buildmasters=" + strings.Join(masters, ","),
	}
	if t := strings.TrimSpace(cfg.Dashboard.Title); t != "" {
		txt = append(txt, "title="+t)
	}
	return advertisement{instance: instance, port: port, txt: txt}, true
}

// startMDNSAdvertiser publishes the dashboard until the returned stop
// function is called. Failures only disable discovery.
func startMDNSAdvertiser(cfg config.File, httpAddr, grpcAddr string) func() {
	noop := func() {}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("BBDASH_MDNS_ENABLE")), "false") {
		return noop
	}
	host, _ := os.Hostname()
	ad, ok := newAdvertisement(cfg, httpAddr, grpcAddr, host)
	if !ok {
		slog.Warn("mdns disabled: no usable listen port", "addr", httpAddr)
		return noop
	}

	var ips []net.IP
	if addrs, err := net.InterfaceAddrs(); err == nil {
		ips = filterAdvertiseIPs(addrs)
	}
	zone, err := mdns.NewMDNSService(ad.instance, mdnsService, "", "", ad.port, ips, ad.txt)
	if err != nil {
		slog.Error("mdns service setup failed", "error", err)
		return noop
	}
	srv, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		slog.Error("mdns start failed", "error", err)
		return noop
	}
	slog.Info("mdns advertising dashboard", "service", mdnsService, "instance", ad.instance, "port", ad.port, "buildmasters", len(cfg.Buildmasters))
	return func() { _ = srv.Shutdown() }
}

// filterAdvertiseIPs keeps routable unicast addresses, IPv4 first.
func filterAdvertiseIPs(addrs []net.Addr) []net.IP {
	var out []net.IP
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet == nil {
			continue
		}
		ip := ipNet.IP.To16()
		if ip == nil || ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			continue
		}
		if slices.ContainsFunc(out, ip.Equal) {
			continue
		}
		out = append(out, ip)
	}
	slices.SortFunc(out, func(a, b net.IP) int {
		a4, b4 := a.To4() != nil, b.To4() != nil
		switch {
		case a4 && !b4:
			return -1
		case b4 && !a4:
			return 1
		}
		return strings.Compare(a.String(), b.String())
	})
	return out
}

func listenPortFromAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "8112"
	}
	if !strings.Contains(addr, ":") {
		return addr
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return port
}
