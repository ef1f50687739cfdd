package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// DiscoveredHub is a hub found on the local network.
type DiscoveredHub struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	Status Status `json:"status"`
}

// Addr returns "ip:port".
func (d DiscoveredHub) Addr() string { return net.JoinHostPort(d.IP, fmt.Sprint(d.Port)) }

// LocalIP returns the address of the interface holding the default route.
// No packet is sent.
func LocalIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

// ScanLAN probes every host of the local /24 for a hub on port.
func ScanLAN(ctx context.Context, port int) ([]DiscoveredHub, error) {
	local, err := LocalIP()
	if err != nil {
		return nil, fmt.Errorf("network: local address: %w", err)
	}
	ip4 := local.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("network: %s is not an IPv4 address", local)
	}

	client := &http.Client{Timeout: 500 * time.Millisecond}
	var (
		hubs []DiscoveredHub
		mu   sync.Mutex
		wg   sync.WaitGroup
	)
	for i := 1; i <= 254; i++ {
		if byte(i) == ip4[3] {
			continue
		}
		ip := net.IPv4(ip4[0], ip4[1], ip4[2], byte(i)).String()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hub, ok := probeHub(ctx, client, ip, port); ok {
				mu.Lock()
				hubs = append(hubs, hub)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return hubs, ctx.Err()
}

// probeHub checks /health, then reads /api/status if available.
func probeHub(ctx context.Context, client *http.Client, ip string, port int) (DiscoveredHub, bool) {
	base := "http://" + net.JoinHostPort(ip, fmt.Sprint(port))
	hub := DiscoveredHub{IP: ip, Port: port}

	resp, err := get(ctx, client, base+"/health")
	if err != nil {
		return hub, false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return hub, false
	}

	resp, err = get(ctx, client, base+"/api/status")
	if err != nil {
		return hub, true
	}
	defer resp.Body.Close()
	json.NewDecoder(resp.Body).Decode(&hub.Status)
	return hub, true
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// LocalIPs returns the IPv4 addresses of all non-loopback interfaces
// that are up.
func LocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip = ip.To4(); ip == nil || ip.IsLoopback() {
				continue
			}
			ips = append(ips, ip.String())
		}
	}
	return ips, nil
}
