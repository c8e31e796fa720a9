package domain

import "time"

// ResourceSnapshot — снимок ресурсов системы в момент времени.
//
// Snapshot неизменяем и пересчитывается на каждой проверке admission:
// кэширование между итерациями привело бы к over- или under-admission.
type ResourceSnapshot struct {
	// AvailableMemory — доступная память в байтах (MemAvailable).
	AvailableMemory uint64 `json:"available_memory"`

	// TotalMemory — общий объём памяти в байтах.
	TotalMemory uint64 `json:"total_memory"`

	// UsedMemoryPercent — занятая память в процентах.
	UsedMemoryPercent float64 `json:"used_memory_percent"`

	// CPULoadPercent — загрузка CPU в процентах за окно измерения.
	CPULoadPercent float64 `json:"cpu_load_percent"`

	// TakenAt — время снятия снимка.
	TakenAt time.Time `json:"taken_at"`
}

// GiB — гибибайт, для логов.
const GiB = 1 << 30

// BytesToGiB переводит байты в GiB.
func BytesToGiB(b uint64) float64 {
	return float64(b) / GiB
}
