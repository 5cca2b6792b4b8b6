package traverse

import (
	"fmt"
	"strings"

	"roleinventory/internal/domain"
)

// ParseServers 解析逗号分隔的服务器列表，元素可写成 "dns:dc01" 指定角色，
// 未指定角色时使用 defaultRole。
func ParseServers(list []string, defaultRole domain.Role) ([]domain.ServerNode, error) {
	var out []domain.ServerNode
	for _, item := range list {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			r := defaultRole
			if prefix, name, ok := strings.Cut(part, ":"); ok {
				parsed, valid := domain.ParseRole(prefix)
				if !valid {
					return nil, fmt.Errorf("未知角色 %q", prefix)
				}
				r, part = parsed, strings.TrimSpace(name)
			}
			out = append(out, domain.ServerNode{Name: part, Role: r, Reachability: domain.ReachabilityUnknown})
		}
	}
	return out, nil
}
