package domain

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/insomniacslk/dhcp/dhcpv4"
)

// OptionKind 为选项值的类型标签。
type OptionKind string

const (
	OptionKindIPList OptionKind = "ip-list"
	OptionKindUint32 OptionKind = "uint32"
	OptionKindInt32  OptionKind = "int32"
	OptionKindByte   OptionKind = "byte"
	OptionKindString OptionKind = "string"
	OptionKindRaw    OptionKind = "raw"
)

// OptionValue 是按选项编号解码后的值，只有与 Kind 对应的字段有效。
type OptionValue struct {
	Kind OptionKind   `json:"kind"`
	IPs  []netip.Addr `json:"ips,omitempty"`
	Int  int64        `json:"int,omitempty"`
	Str  string       `json:"str,omitempty"`
	Raw  []string     `json:"raw,omitempty"`
}

// String 用于报表展示。
func (v OptionValue) String() string {
	switch v.Kind {
	case OptionKindIPList:
		parts := make([]string, 0, len(v.IPs))
		for _, ip := range v.IPs {
			parts = append(parts, ip.String())
		}
		return strings.Join(parts, ", ")
	case OptionKindUint32, OptionKindInt32, OptionKindByte:
		return strconv.FormatInt(v.Int, 10)
	case OptionKindString:
		return v.Str
	}
	return strings.Join(v.Raw, ", ")
}

type optionSpec struct {
	code dhcpv4.OptionCode
	kind OptionKind
}

var optionDecodeTable = buildDecodeTable([]optionSpec{
	{dhcpv4.OptionSubnetMask, OptionKindIPList},
	{dhcpv4.OptionTimeOffset, OptionKindInt32},
	{dhcpv4.OptionRouter, OptionKindIPList},
	{dhcpv4.OptionTimeServer, OptionKindIPList},
	{dhcpv4.OptionDomainNameServer, OptionKindIPList},
	{dhcpv4.OptionHostName, OptionKindString},
	{dhcpv4.OptionDomainName, OptionKindString},
	{dhcpv4.OptionBroadcastAddress, OptionKindIPList},
	{dhcpv4.OptionNTPServers, OptionKindIPList},
	{dhcpv4.OptionNetBIOSOverTCPIPNameServer, OptionKindIPList},
	{dhcpv4.OptionNetBIOSOverTCPIPNodeType, OptionKindByte},
	{dhcpv4.OptionIPAddressLeaseTime, OptionKindUint32},
	{dhcpv4.OptionRenewTimeValue, OptionKindUint32},
	{dhcpv4.OptionRebindingTimeValue, OptionKindUint32},
	{dhcpv4.OptionTFTPServerName, OptionKindString},
	{dhcpv4.OptionBootfileName, OptionKindString},
})

func buildDecodeTable(specs []optionSpec) map[int]optionSpec {
	table := make(map[int]optionSpec, len(specs))
	for _, s := range specs {
		table[int(s.code.Code())] = s
	}
	return table
}

// OptionName 返回选项名称：已知编号用标准名称，否则用角色接口给出的名称。
func OptionName(id int, fallback string) string {
	if spec, ok := optionDecodeTable[id]; ok {
		return spec.code.String()
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return fmt.Sprintf("Option %d", id)
}

// DecodeOption 按解码表解析原始选项。未登记的编号保留为 Raw；
// 已登记但解析失败时同样保留 Raw，并返回错误交由调用方记录。
func DecodeOption(raw RawOption) (OptionRecord, error) {
	rec := OptionRecord{
		OptionID:    raw.OptionID,
		Name:        OptionName(raw.OptionID, raw.Name),
		VendorClass: raw.VendorClass,
		UserClass:   raw.UserClass,
		Value:       OptionValue{Kind: OptionKindRaw, Raw: append([]string(nil), raw.Values...)},
	}
	spec, ok := optionDecodeTable[raw.OptionID]
	if !ok {
		return rec, nil
	}
	value, err := decodeValue(spec.kind, raw.Values)
	if err != nil {
		return rec, fmt.Errorf("选项 %d (%s) 解码失败: %w", raw.OptionID, rec.Name, err)
	}
	rec.Value = value
	return rec, nil
}

func decodeValue(kind OptionKind, values []string) (OptionValue, error) {
	switch kind {
	case OptionKindIPList:
		if len(values) == 0 {
			return OptionValue{}, fmt.Errorf("空地址列表")
		}
		ips := make([]netip.Addr, 0, len(values))
		for _, v := range values {
			addr, err := netip.ParseAddr(strings.TrimSpace(v))
			if err != nil {
				return OptionValue{}, err
			}
			ips = append(ips, addr)
		}
		return OptionValue{Kind: kind, IPs: ips}, nil
	case OptionKindUint32, OptionKindInt32, OptionKindByte:
		if len(values) != 1 {
			return OptionValue{}, fmt.Errorf("期望 1 个值, 实际 %d 个", len(values))
		}
		bits := 32
		if kind == OptionKindByte {
			bits = 8
		}
		s := strings.TrimSpace(values[0])
		if kind == OptionKindInt32 {
			n, err := strconv.ParseInt(s, 10, bits)
			if err != nil {
				return OptionValue{}, err
			}
			return OptionValue{Kind: kind, Int: n}, nil
		}
		n, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return OptionValue{}, err
		}
		return OptionValue{Kind: kind, Int: int64(n)}, nil
	case OptionKindString:
		return OptionValue{Kind: kind, Str: strings.Join(values, ",")}, nil
	}
	return OptionValue{Kind: OptionKindRaw, Raw: values}, nil
}
