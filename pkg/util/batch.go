package util

import "slices"

// Batch 将切片按固定大小拆分，最后一批可能小于 batchSize；batchSize<=0 时整体为一批。
func Batch[T any](items []T, batchSize int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}
	return slices.Collect(slices.Chunk(items, batchSize))
}
