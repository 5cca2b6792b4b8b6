package util

import "testing"

func TestBatch(t *testing.T) {
	got := Batch([]int{1, 2, 3, 4, 5}, 2)
	if len(got) != 3 || len(got[2]) != 1 || got[2][0] != 5 {
		t.Fatalf("unexpected batches: %v", got)
	}
	if got := Batch([]int{1, 2}, 0); len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("batchSize<=0 应整体一批: %v", got)
	}
	if got := Batch[int](nil, 3); got != nil {
		t.Fatalf("空输入应返回 nil: %v", got)
	}
}

func TestHashMapStable(t *testing.T) {
	a := HashMap(map[string]any{"ip": "10.0.0.1", "ttl": 3600, "nested": map[string]any{"b": 1, "a": 2}})
	b := HashMap(map[string]any{"nested": map[string]any{"a": 2, "b": 1}, "ttl": 3600, "ip": "10.0.0.1"})
	if a != b {
		t.Fatalf("hash 应与 key 顺序无关: %s != %s", a, b)
	}
	if c := HashMap(map[string]any{"ip": "10.0.0.2"}); c == a {
		t.Fatalf("不同内容 hash 不应相同")
	}
}
