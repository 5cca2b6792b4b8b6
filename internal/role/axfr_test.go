package role

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/miekg/dns"

	"roleinventory/internal/domain"
)

func startXfrServer(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("无法监听本地端口: %v", err)
	}
	mux := dns.NewServeMux()
	mux.HandleFunc("corp.local.", func(w dns.ResponseWriter, r *dns.Msg) {
		soa, _ := dns.NewRR("corp.local. 3600 IN SOA dc01.corp.local. admin.corp.local. 1 900 600 86400 3600")
		a, _ := dns.NewRR("pc1.corp.local. 1200 IN A 10.0.0.10")
		cname, _ := dns.NewRR("www.corp.local. 300 IN CNAME pc1.corp.local.")
		ch := make(chan *dns.Envelope)
		tr := new(dns.Transfer)
		done := make(chan struct{})
		go func() {
			_ = tr.Out(w, r, ch)
			close(done)
		}()
		ch <- &dns.Envelope{RR: []dns.RR{soa, a, cname, soa}}
		close(ch)
		<-done
		w.Hijack()
	})
	mux.HandleFunc("secret.local.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeRefused)
		_ = w.WriteMsg(m)
	})
	srv := &dns.Server{Listener: l, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return l.Addr().(*net.TCPAddr).Port
}

func TestXfrListRecords(t *testing.T) {
	port := startXfrServer(t)
	c := NewXfrClient(XfrConfig{Zones: []string{"corp.local."}, Port: port, Timeout: 2 * time.Second})

	zones, err := c.ListZones(context.Background(), "127.0.0.1")
	if err != nil || len(zones) != 1 || zones[0].Name != "corp.local" {
		t.Fatalf("unexpected zones %+v err=%v", zones, err)
	}

	records, err := c.ListRecords(context.Background(), "127.0.0.1", "corp.local")
	if err != nil {
		t.Fatalf("list records on port %s: %v", strconv.Itoa(port), err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records (closing SOA dropped), got %d: %+v", len(records), records)
	}
	if records[1].Name != "pc1.corp.local" || records[1].Type != "A" || records[1].Data != "10.0.0.10" || records[1].TTL != 1200 {
		t.Fatalf("unexpected A record: %+v", records[1])
	}
}

func TestXfrRefusedIsAccessDenied(t *testing.T) {
	port := startXfrServer(t)
	c := NewXfrClient(XfrConfig{Zones: []string{"secret.local"}, Port: port, Timeout: 2 * time.Second})
	_, err := c.ListRecords(context.Background(), "127.0.0.1", "secret.local")
	if KindOf(err) != domain.FailureAccessDenied {
		t.Fatalf("expected AccessDenied, got %v", err)
	}
}

func TestXfrReverseZoneFlag(t *testing.T) {
	c := NewXfrClient(XfrConfig{Zones: []string{"0.10.in-addr.arpa", "corp.local"}})
	zones, _ := c.ListZones(context.Background(), "dns01")
	if len(zones) != 2 || !zones[0].IsReverse || zones[1].IsReverse {
		t.Fatalf("unexpected zones: %+v", zones)
	}
}
