package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashMap 返回 map 的稳定 hash，用于判断节点内容是否变化。
// encoding/json 对 map key 排序，嵌套 map 同样稳定。
func HashMap(m map[string]any) string {
	data, err := json.Marshal(m)
	if err != nil {
		data = []byte(fmt.Sprint(m))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
