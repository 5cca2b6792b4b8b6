package aggregate

import (
	"sort"

	"roleinventory/internal/domain"
)

// NodeFailures 为单个节点上的失败计数。
type NodeFailures struct {
	Node   string                     `json:"node"`
	Total  int                        `json:"total"`
	ByKind map[domain.FailureKind]int `json:"by_kind"`
}

// FailureSummary 按分类和按节点统计失败，供控制台与报表展示。
type FailureSummary struct {
	Total  int                        `json:"total"`
	ByKind map[domain.FailureKind]int `json:"by_kind"`
	ByNode []NodeFailures             `json:"by_node"`
}

// SummarizeFailures 统计失败，ByNode 按节点 key 排序。
func SummarizeFailures(failures []domain.Failure) FailureSummary {
	sum := FailureSummary{ByKind: make(map[domain.FailureKind]int)}
	nodes := make(map[string]*NodeFailures)
	for _, f := range failures {
		sum.Total++
		sum.ByKind[f.Kind]++
		n, ok := nodes[f.Node()]
		if !ok {
			n = &NodeFailures{Node: f.Node(), ByKind: make(map[domain.FailureKind]int)}
			nodes[f.Node()] = n
		}
		n.Total++
		n.ByKind[f.Kind]++
	}
	for _, n := range nodes {
		sum.ByNode = append(sum.ByNode, *n)
	}
	sort.Slice(sum.ByNode, func(i, j int) bool {
		return sum.ByNode[i].Node < sum.ByNode[j].Node
	})
	return sum
}
