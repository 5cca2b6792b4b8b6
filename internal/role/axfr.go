package role

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"roleinventory/internal/domain"
)

// XfrConfig 配置区域传送客户端。Zones 为需要传送的区域列表。
type XfrConfig struct {
	Zones   []string
	Port    int
	Timeout time.Duration
}

// XfrClient 通过 AXFR 读取 DNS 区域，只实现 DNSClient。
// 区域列表来自配置，服务器本身不提供枚举。
type XfrClient struct {
	zones   []string
	port    string
	timeout time.Duration
}

// NewXfrClient 创建区域传送客户端。
func NewXfrClient(cfg XfrConfig) *XfrClient {
	port := cfg.Port
	if port <= 0 {
		port = 53
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	zones := make([]string, 0, len(cfg.Zones))
	for _, z := range cfg.Zones {
		z = strings.TrimSuffix(strings.TrimSpace(z), ".")
		if z != "" {
			zones = append(zones, z)
		}
	}
	sort.Strings(zones)
	return &XfrClient{zones: zones, port: strconv.Itoa(port), timeout: timeout}
}

func (c *XfrClient) ListZones(_ context.Context, server string) ([]domain.ZoneRecord, error) {
	out := make([]domain.ZoneRecord, 0, len(c.zones))
	for _, z := range c.zones {
		out = append(out, domain.ZoneRecord{
			Server:    server,
			Name:      z,
			Type:      "Secondary",
			IsReverse: strings.HasSuffix(strings.ToLower(z), ".in-addr.arpa"),
		})
	}
	return out, nil
}

func (c *XfrClient) ListRecords(ctx context.Context, server, zone string) ([]domain.ResourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(domain.FailureUnreachable, "axfr", err)
	}
	m := new(dns.Msg)
	m.SetAxfr(dns.Fqdn(zone))
	t := &dns.Transfer{DialTimeout: c.timeout, ReadTimeout: c.timeout, WriteTimeout: c.timeout}
	ch, err := t.In(m, net.JoinHostPort(server, c.port))
	if err != nil {
		return nil, NewError(domain.FailureUnreachable, "axfr", err)
	}
	var out []domain.ResourceRecord
	seenSOA := false
	for env := range ch {
		if env.Error != nil {
			return nil, NewError(classifyXfr(env.Error), "axfr", fmt.Errorf("zone %s: %w", zone, env.Error))
		}
		for _, rr := range env.RR {
			hdr := rr.Header()
			if hdr.Rrtype == dns.TypeSOA {
				// 传送以 SOA 开始并以同一条 SOA 结束
				if seenSOA {
					continue
				}
				seenSOA = true
			}
			out = append(out, domain.ResourceRecord{
				Name: strings.TrimSuffix(hdr.Name, "."),
				Type: dns.TypeToString[hdr.Rrtype],
				TTL:  hdr.Ttl,
				Data: strings.TrimPrefix(rr.String(), hdr.String()),
			})
		}
	}
	return out, nil
}

// classifyXfr 把传送失败的 rcode 映射为失败分类。
func classifyXfr(err error) domain.FailureKind {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.FailureUnreachable
	}
	msg := err.Error()
	idx := strings.LastIndex(msg, "rcode: ")
	if idx < 0 {
		return domain.FailureMalformedData
	}
	rcode, convErr := strconv.Atoi(strings.TrimSpace(msg[idx+len("rcode: "):]))
	if convErr != nil {
		return domain.FailureMalformedData
	}
	switch rcode {
	case dns.RcodeRefused, dns.RcodeNotAuth:
		return domain.FailureAccessDenied
	case dns.RcodeNameError, dns.RcodeNotZone:
		return domain.FailureNotFound
	}
	return domain.FailureUnreachable
}

// Composite 按角色拼装客户端，例如 PowerShell 负责发现与 DHCP、AXFR 负责 DNS。
type Composite struct {
	Directory
	DHCPClient
	DNSClient
}

var _ Client = Composite{}
