package pganconfig

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Imsizes is the resolution progression the generator grows through.
// e.g. 4, 8, 16, ..., 1024
var Imsizes = func() []int {
	sizes := make([]int, 9)
	for i := range sizes {
		sizes[i] = 4 << uint(i)
	}
	return sizes
}()

// DefaultBatchSize is the default batch size per resolution (V100-32GB settings).
const DefaultBatchSize = "256,256,256,128,72,24,8,7,7"

// ErrBatchScheduleLength is returned when the batch size list does not
// have one value per resolution.
var ErrBatchScheduleLength = errors.New("invalid batch size schedule length")

// BatchSchedule maps an image resolution to its batch size.
type BatchSchedule map[int]int

// ParseBatchSchedule parses a comma-separated batch size list,
// one value per entry of Imsizes in order.
func ParseBatchSchedule(s string) (BatchSchedule, error) {
	ss := strings.Split(strings.TrimSpace(s), ",")
	if len(ss) != len(Imsizes) {
		return nil, fmt.Errorf("%w: expected %d comma-separated values (one per resolution %d..%d), got %d in %q",
			ErrBatchScheduleLength, len(Imsizes), Imsizes[0], Imsizes[len(Imsizes)-1], len(ss), s)
	}
	bs := make(BatchSchedule, len(Imsizes))
	for i, v := range ss {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("batch size #%d (resolution %d) %q is not an integer (%v)", i, Imsizes[i], v, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("batch size #%d (resolution %d) must be positive, got %d", i, Imsizes[i], n)
		}
		bs[Imsizes[i]] = n
	}
	return bs, nil
}

// String returns the schedule in the comma-separated flag format.
func (bs BatchSchedule) String() string {
	sizes := make([]int, 0, len(bs))
	for k := range bs {
		sizes = append(sizes, k)
	}
	sort.Ints(sizes)
	ss := make([]string, 0, len(sizes))
	for _, k := range sizes {
		ss = append(ss, strconv.Itoa(bs[k]))
	}
	return strings.Join(ss, ",")
}

// Set implements "pflag.Value".
func (bs *BatchSchedule) Set(s string) error {
	parsed, err := ParseBatchSchedule(s)
	if err != nil {
		return err
	}
	*bs = parsed
	return nil
}

// Type implements "pflag.Value".
func (bs *BatchSchedule) Type() string { return "batch-schedule" }

// For returns the batch size for the resolution.
func (bs BatchSchedule) For(imsize int) (int, bool) {
	n, ok := bs[imsize]
	return n, ok
}

func (bs BatchSchedule) validate() error {
	if len(bs) != len(Imsizes) {
		return fmt.Errorf("%w: expected %d entries, got %d", ErrBatchScheduleLength, len(Imsizes), len(bs))
	}
	for _, imsize := range Imsizes {
		n, ok := bs[imsize]
		if !ok {
			return fmt.Errorf("batch size for resolution %d not found", imsize)
		}
		if n <= 0 {
			return fmt.Errorf("batch size for resolution %d must be positive, got %d", imsize, n)
		}
	}
	return nil
}

func isImsize(n int) bool {
	for _, v := range Imsizes {
		if v == n {
			return true
		}
	}
	return false
}
