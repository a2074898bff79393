// Package game fetches the complete A2S_INFO of a server for the inspect mode.
package game

import (
	"net/netip"

	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/autojoin/internal/config"
)

// QueryServer connects to a game server via UDP and requests A2S_INFO.
// Unlike the poll path it decodes every field (version, environment, keywords ...).
func QueryServer(addr netip.AddrPort, options config.Query) (*a2s.Info, error) {
	client, err := a2s.New(addr.Addr().String(), int(addr.Port()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = options.BufferSize
	client.Timeout = options.Timeout

	return client.GetInfo()
}

// Report is the inspect mode output for one server.
type Report struct {
	Info    *a2s.Info `json:"info,omitempty"`
	Address string    `json:"address"`
	Error   string    `json:"error,omitempty"`
	OS      string    `json:"os,omitempty"`
}

// Inspect queries every address in order. Failures are reported per server.
func Inspect(addrs []netip.AddrPort, options config.Query) []Report {
	reports := make([]Report, 0, len(addrs))

	for _, addr := range addrs {
		r := Report{Address: addr.String()}

		info, err := QueryServer(addr, options)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Info = info
			r.OS = info.Environment.String()
		}

		reports = append(reports, r)
	}

	return reports
}
