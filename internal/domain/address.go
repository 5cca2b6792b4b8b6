package domain

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// AddressRange 为作用域的起止地址与掩码，保持角色接口返回的字符串形式。
type AddressRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Mask  string `json:"mask,omitempty"`
}

// ParseIPv4 解析 IPv4 地址，IPv4-mapped IPv6 会被还原。
func ParseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, err
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%s 不是 IPv4 地址", s)
	}
	return addr, nil
}

// IPv4ToUint32 返回地址的 32 位无符号整数表示。
func IPv4ToUint32(s string) (uint32, error) {
	addr, err := ParseIPv4(s)
	if err != nil {
		return 0, err
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

// IPRange 返回 netipx 表示的地址段；任一端无法解析时 ok 为 false。
func (r AddressRange) IPRange() (netipx.IPRange, bool) {
	start, err := ParseIPv4(r.Start)
	if err != nil {
		return netipx.IPRange{}, false
	}
	end, err := ParseIPv4(r.End)
	if err != nil {
		return netipx.IPRange{}, false
	}
	return netipx.IPRangeFrom(start, end), true
}

// Validate 校验地址段：两端均为 IPv4 且 end >= start。
func (r AddressRange) Validate() error {
	if _, err := ParseIPv4(r.Start); err != nil {
		return fmt.Errorf("起始地址非法: %w", err)
	}
	if _, err := ParseIPv4(r.End); err != nil {
		return fmt.Errorf("结束地址非法: %w", err)
	}
	rng, _ := r.IPRange()
	if !rng.IsValid() {
		return fmt.Errorf("地址段倒置: %s > %s", r.Start, r.End)
	}
	return nil
}

// Total 按 u32(end) - u32(start) + 1 计算地址总数，在 int64 上运算避免回绕。
// 地址非法或结果 <= 0 时 ok 为 false。
func (r AddressRange) Total() (int64, bool) {
	start, err := IPv4ToUint32(r.Start)
	if err != nil {
		return 0, false
	}
	end, err := IPv4ToUint32(r.End)
	if err != nil {
		return 0, false
	}
	total := int64(end) - int64(start) + 1
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// Contains 判断地址是否落在地址段内。
func (r AddressRange) Contains(ip string) bool {
	rng, ok := r.IPRange()
	if !ok || !rng.IsValid() {
		return false
	}
	addr, err := ParseIPv4(ip)
	if err != nil {
		return false
	}
	return rng.Contains(addr)
}

// Utilization 为派生的利用率，Known 为 false 时其余字段无意义。
type Utilization struct {
	Known   bool    `json:"known"`
	InUse   uint32  `json:"in_use"`
	Total   int64   `json:"total"`
	Percent float64 `json:"percent"`
}

// UnknownUtilization 表示无法计算的利用率，不能当作 0 处理。
var UnknownUtilization = Utilization{}

// ComputeUtilization 根据地址段与使用数计算利用率。
func ComputeUtilization(r AddressRange, inUse uint32) Utilization {
	total, ok := r.Total()
	if !ok {
		return UnknownUtilization
	}
	return Utilization{
		Known:   true,
		InUse:   inUse,
		Total:   total,
		Percent: float64(inUse) / float64(total) * 100,
	}
}

// String 用于报表展示。
func (u Utilization) String() string {
	if !u.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.1f%%", u.Percent)
}

// CompareScopeIDs 按 IPv4 数值比较作用域 ID，无法解析时退化为字符串比较。
func CompareScopeIDs(a, b string) int {
	ua, errA := IPv4ToUint32(a)
	ub, errB := IPv4ToUint32(b)
	switch {
	case errA == nil && errB == nil:
		switch {
		case ua < ub:
			return -1
		case ua > ub:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
