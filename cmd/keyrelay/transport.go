package keyrelay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"keyrelay/internal/config"
	"keyrelay/internal/network"
)

var errNoPeer = errors.New("no peer address configured")

// listenPort returns the port of a listen address such as ":7878".
func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q: bad port", addr)
	}
	return port, nil
}

// newSender opens the sending side of the configured transport. With udp,
// and with ws without a peer, servers connect to us.
func newSender(ctx context.Context, cfg config.Config) (network.Sender, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		if cfg.Peer == "" {
			return nil, errNoPeer
		}
		return network.NewTCPSender(cfg.Peer), nil

	case config.TransportUDP:
		port, err := listenPort(cfg.Listen)
		if err != nil {
			return nil, err
		}
		s := network.NewUDPSender(port, logger)
		if err := s.Start(); err != nil {
			return nil, err
		}
		return s, nil

	case config.TransportWS:
		if cfg.Peer != "" {
			c := network.NewWSClient(cfg.Peer, nil, logger)
			c.Start()
			return c, nil
		}
		h := network.NewHub("keyrelay", nil, logger)
		go func() {
			if err := h.ListenAndServe(ctx, cfg.Listen); err != nil {
				logger.Error("hub stopped", "error", err)
			}
		}()
		return h, nil

	case config.TransportSerial:
		port, err := network.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return nil, err
		}
		return network.NewStreamSender(port), nil
	}
	return nil, fmt.Errorf("%w: transport %q", config.ErrInvalid, cfg.Transport)
}

// awaitReceivers waits until a sender that servers connect to has at least
// one of them. Other senders return at once.
func awaitReceivers(ctx context.Context, s network.Sender, timeout time.Duration) error {
	var count func() int
	switch s := s.(type) {
	case *network.UDPSender:
		count = s.Peers
	case *network.Hub:
		count = s.Clients
	case *network.WSClient:
		count = func() int {
			if s.IsConnected() {
				return 1
			}
			return 0
		}
	default:
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for count() == 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("no receiver connected within %s", timeout)
		case <-ticker.C:
		}
	}
	return nil
}

// linger gives senders that write from a background goroutine time to
// flush before they are closed.
func linger(s network.Sender) {
	switch s.(type) {
	case *network.Hub, *network.WSClient:
		time.Sleep(250 * time.Millisecond)
	}
}

// serveTransport delivers messages from the configured transport to sink
// until ctx is done.
func serveTransport(ctx context.Context, cfg config.Config, sink network.Sink) error {
	switch cfg.Transport {
	case config.TransportTCP:
		l, err := network.ListenTCP(cfg.Listen, sink, logger)
		if err != nil {
			return err
		}
		return l.Serve(ctx)

	case config.TransportUDP:
		if cfg.Peer == "" {
			return fmt.Errorf("udp: %w", errNoPeer)
		}
		r := network.NewUDPReceiver(cfg.Peer, sink, logger)
		if !r.Probe() {
			logger.Warn("sender not answering yet, will keep registering", "peer", cfg.Peer)
		}
		if err := r.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return r.Close()

	case config.TransportWS:
		if cfg.Peer != "" {
			c := network.NewWSClient(cfg.Peer, sink, logger)
			c.Start()
			<-ctx.Done()
			return c.Close()
		}
		h := network.NewHub("keyrelay", sink, logger)
		defer h.Close()
		return h.ListenAndServe(ctx, cfg.Listen)

	case config.TransportSerial:
		port, errc, err := network.ServeSerial(cfg.SerialPort, cfg.SerialBaud, sink, logger)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			port.Close()
			<-errc
			return nil
		case err := <-errc:
			port.Close()
			return err
		}
	}
	return fmt.Errorf("%w: transport %q", config.ErrInvalid, cfg.Transport)
}
