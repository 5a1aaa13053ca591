package scope

import (
	"fmt"
	"math/bits"
	"runtime"
	"runtime/debug"
)

// SlotSize is the size of one array slot (a pointer) in bytes.
const SlotSize = bits.UintSize / 8

// MaxSlots caps any single array regardless of free memory.
const MaxSlots = 1 << 26

// MinChecked is the array length under which no memory check is done.
const MinChecked = 4096

// FreeMemory returns the bytes left under the GOMEMLIMIT, can be negative.
func FreeMemory() int64 {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	currentAlloc := memStats.HeapAlloc
	gomemlimit := debug.SetMemoryLimit(-1)
	return gomemlimit - int64(currentAlloc) //nolint:gosec // necessary, can be negative.
}

func slotsOk(n int) (bool, int64) {
	if n <= MinChecked {
		return true, 0
	}
	free := FreeMemory()
	return free >= 0 && int64(n)*SlotSize < free, free
}

// CheckSlots returns an error when growing an array to n slots would exceed
// the memory limit, after giving the GC one chance.
func CheckSlots(n int) error {
	if n > MaxSlots {
		return fmt.Errorf("%w: %d slots requested, max is %d", ErrTooLarge, n, MaxSlots)
	}
	if ok, _ := slotsOk(n); ok {
		return nil
	}
	runtime.GC()
	if ok, free := slotsOk(n); !ok {
		return fmt.Errorf("%w: %d slots requested, %d bytes free", ErrTooLarge, n, free)
	}
	return nil
}
